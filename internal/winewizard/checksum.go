package winewizard

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
	"lukechampine.com/blake3"
)

// Checksum is a parsed manifest checksum.
type Checksum struct {
	Algo string
	Hex  string
}

func (c Checksum) String() string { return c.Algo + ":" + c.Hex }

// ParseChecksum accepts "algo:hex" or bare hex. Bare sums are md5 when 32
// digits long and blake3 otherwise.
func ParseChecksum(s string) (Checksum, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Checksum{}, fmt.Errorf("empty checksum")
	}
	algo, sum, ok := strings.Cut(s, ":")
	if !ok {
		sum = s
		algo = "blake3"
		if len(sum) == 32 {
			algo = "md5"
		}
	}
	if _, err := newHash(algo); err != nil {
		return Checksum{}, err
	}
	for _, r := range sum {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return Checksum{}, fmt.Errorf("checksum %q is not hex", s)
		}
	}
	return Checksum{Algo: algo, Hex: sum}, nil
}

func newHash(algo string) (hash.Hash, error) {
	switch algo {
	case "blake3":
		return blake3.New(32, nil), nil
	case "sha256":
		return sha256.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "md5":
		return md5.New(), nil
	}
	return nil, fmt.Errorf("unsupported checksum algorithm %q", algo)
}

// ComputeChecksum hashes the file at path with algo.
func ComputeChecksum(path, algo string) (string, error) {
	return computeWithBuffer(path, algo, make([]byte, 64*1024))
}

func computeWithBuffer(path, algo string, buf []byte) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// CheckFileSum reports whether path exists and matches sum. A missing file is
// a mismatch, not an error.
func CheckFileSum(path, sum string) (bool, error) {
	if strings.TrimSpace(sum) == "" {
		_, err := os.Stat(path)
		return err == nil, nil
	}
	want, err := ParseChecksum(sum)
	if err != nil {
		return false, err
	}
	var got string
	err = withSharedLock(path, func() error {
		var herr error
		got, herr = ComputeChecksum(path, want.Algo)
		return herr
	})
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got == want.Hex, nil
}

// CheckFileSums verifies many files in parallel and returns the names whose
// local copy is missing or does not match. paths maps a name to its path.
func CheckFileSums(paths map[string]string, sums map[string]string) ([]string, error) {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, nil
	}

	numWorkers := runtime.NumCPU() * 2
	if len(names) < numWorkers {
		numWorkers = len(names)
	}

	jobs := make(chan string, len(names))
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		stale    []string
	)
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				ok, err := CheckFileSum(paths[name], sums[name])
				mu.Lock()
				if err != nil {
					errOnce.Do(func() { firstErr = fmt.Errorf("%s: %w", name, err) })
				} else if !ok {
					stale = append(stale, name)
				}
				mu.Unlock()
			}
		}()
	}
	for _, name := range names {
		jobs <- name
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return stale, nil
}

// withSharedLock holds a shared flock on path+".lock" while fn runs so a
// concurrent download cannot replace the file mid-read.
func withSharedLock(path string, fn func() error) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fn()
	}
	defer f.Close()
	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		return err
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return fn()
}
