package winewizard

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sys/unix"
)

// maxRecoveryHops bounds how many intermediate pages a mirror may route through.
const maxRecoveryHops = 5

// maxPageSize bounds how much of an intermediate HTML page is scanned.
const maxPageSize = 4 << 20

// FetchRequest describes one artifact acquisition.
type FetchRequest struct {
	Mirrors  []string
	Dest     string
	Checksum string   // empty skips verification (repository and solution documents)
	Recovery []string // expressions locating the real link on an intermediate page
}

// Fetcher acquires a file from one of several mirrors. Cancellation through
// ctx yields ErrAcquisitionCancelled.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) error
}

// HTTPFetcher downloads over HTTP(S) and from s3:// mirrors.
type HTTPFetcher struct {
	Client *http.Client
	Out    io.Writer // progress output; nil disables the progress bar
	Logger hclog.Logger

	s3Settings S3Settings
	s3Once     sync.Once
	s3         *S3Mirror
	s3Err      error
}

// NewHTTPFetcher builds a fetcher with a TLS 1.2+ client.
func NewHTTPFetcher(s S3Settings, out io.Writer, logger hclog.Logger) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	transport.TLSHandshakeTimeout = 30 * time.Second
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &HTTPFetcher{
		Client:     &http.Client{Transport: transport},
		Out:        out,
		Logger:     logger,
		s3Settings: s,
	}
}

// Fetch tries each mirror in order until one yields a file matching the checksum.
func (f *HTTPFetcher) Fetch(ctx context.Context, req FetchRequest) error {
	if len(req.Mirrors) == 0 {
		return fmt.Errorf("no mirrors for %s", filepath.Base(req.Dest))
	}
	if err := os.MkdirAll(filepath.Dir(req.Dest), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", req.Dest, err)
	}

	lockFile, err := os.OpenFile(req.Dest+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer lockFile.Close()
	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock for download: %w", err)
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	tmp := req.Dest + ".part"
	defer os.Remove(tmp)

	var lastErr error
	for _, mirror := range req.Mirrors {
		if ctx.Err() != nil {
			return ErrAcquisitionCancelled
		}
		f.Logger.Debug("fetching", "mirror", mirror, "dest", req.Dest)
		err := f.fetchMirror(ctx, mirror, tmp, req.Recovery)
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return ErrAcquisitionCancelled
		}
		if err != nil {
			f.Logger.Warn("mirror failed", "mirror", mirror, "error", err)
			lastErr = err
			continue
		}
		if req.Checksum != "" {
			want, err := ParseChecksum(req.Checksum)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(req.Dest), err)
			}
			got, err := ComputeChecksum(tmp, want.Algo)
			if err != nil {
				return err
			}
			if got != want.Hex {
				lastErr = fmt.Errorf("checksum mismatch from %s: got %s, want %s", mirror, got, want.Hex)
				f.Logger.Warn("checksum mismatch", "mirror", mirror, "got", got, "want", want.Hex)
				continue
			}
		}
		if err := os.Rename(tmp, req.Dest); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", req.Dest, err)
		}
		return nil
	}
	return fmt.Errorf("all mirrors failed for %s: %w", filepath.Base(req.Dest), lastErr)
}

func (f *HTTPFetcher) fetchMirror(ctx context.Context, mirror, dest string, recovery []string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", dest, err)
	}
	defer out.Close()

	if strings.HasPrefix(mirror, "s3://") {
		m, err := f.s3Mirror(ctx)
		if err != nil {
			return err
		}
		_, err = m.Download(ctx, mirror, out)
		return err
	}

	current := mirror
	for hop := 0; hop <= maxRecoveryHops; hop++ {
		next, err := f.download(ctx, current, out, recovery)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		f.Logger.Debug("following intermediate page", "from", current, "to", next)
		current = next
	}
	return fmt.Errorf("too many intermediate pages starting at %s", mirror)
}

// download writes the body of rawURL into out, or returns the next URL when
// the response is an intermediate HTML page and recovery expressions exist.
func (f *HTTPFetcher) download(ctx context.Context, rawURL string, out *os.File, recovery []string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status: %s", resp.Status)
	}

	if len(recovery) > 0 && isHTML(resp.Header.Get("Content-Type")) {
		page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
		if err != nil {
			return "", err
		}
		next, err := findRecoveryURL(page, recovery, resp.Request.URL)
		if err != nil {
			return "", err
		}
		return next, nil
	}

	if err := out.Truncate(0); err != nil {
		return "", err
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	var w io.Writer = out
	if f.Out != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(f.Out),
			progressbar.OptionSetDescription(filepath.Base(strings.TrimSuffix(out.Name(), ".part"))),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(f.Out) }),
		)
		defer bar.Finish()
		w = io.MultiWriter(out, bar)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write to destination file: %w", err)
	}
	return "", nil
}

func (f *HTTPFetcher) s3Mirror(ctx context.Context) (*S3Mirror, error) {
	f.s3Once.Do(func() {
		f.s3, f.s3Err = NewS3Mirror(ctx, f.s3Settings, f.Logger.IsTrace())
	})
	return f.s3, f.s3Err
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && (mt == "text/html" || mt == "application/xhtml+xml")
}

// findRecoveryURL applies each expression to page in order. The first capture
// group is the link when present, otherwise the whole match. Relative links
// resolve against base.
func findRecoveryURL(page []byte, expressions []string, base *url.URL) (string, error) {
	for _, expr := range expressions {
		re, err := regexp.Compile(expr)
		if err != nil {
			return "", fmt.Errorf("invalid recovery expression %q: %w", expr, err)
		}
		m := re.FindSubmatch(page)
		if m == nil {
			continue
		}
		link := m[0]
		if len(m) > 1 && len(m[1]) > 0 {
			link = m[1]
		}
		ref, err := url.Parse(string(bytes.TrimSpace(link)))
		if err != nil {
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		return ref.String(), nil
	}
	return "", fmt.Errorf("no recovery expression matched the intermediate page")
}
