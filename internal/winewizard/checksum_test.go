package winewizard

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"testing"

	"lukechampine.com/blake3"
)

func TestParseChecksum(t *testing.T) {
	md5hex := fmt.Sprintf("%x", md5.Sum([]byte("x")))
	b3 := blake3.Sum256([]byte("x"))
	b3hex := fmt.Sprintf("%x", b3[:])

	tests := []struct {
		name     string
		in       string
		wantAlgo string
		wantErr  bool
	}{
		{"bare md5", md5hex, "md5", false},
		{"bare blake3", b3hex, "blake3", false},
		{"prefixed sha256", "sha256:" + fmt.Sprintf("%x", sha256.Sum256([]byte("x"))), "sha256", false},
		{"upper case", "MD5:" + md5hex, "md5", false},
		{"unknown algo", "crc32:abcd", "", true},
		{"not hex", "md5:zz", "", true},
		{"empty", "  ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChecksum(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChecksum(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got.Algo != tt.wantAlgo {
				t.Errorf("Algo = %q, want %q", got.Algo, tt.wantAlgo)
			}
		})
	}
}

func TestCheckFileSum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	writeFile(t, path, "payload")
	good := fmt.Sprintf("%x", md5.Sum([]byte("payload")))
	bad := fmt.Sprintf("%x", md5.Sum([]byte("other")))

	if ok, err := CheckFileSum(path, good); err != nil || !ok {
		t.Errorf("CheckFileSum(good) = %v, %v", ok, err)
	}
	if ok, err := CheckFileSum(path, bad); err != nil || ok {
		t.Errorf("CheckFileSum(bad) = %v, %v", ok, err)
	}
	if ok, err := CheckFileSum(filepath.Join(dir, "missing"), good); err != nil || ok {
		t.Errorf("CheckFileSum(missing) = %v, %v", ok, err)
	}
	if ok, err := CheckFileSum(path, ""); err != nil || !ok {
		t.Errorf("CheckFileSum(no sum) = %v, %v", ok, err)
	}

	sum, err := ComputeChecksum(path, "blake3")
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := CheckFileSum(path, sum); err != nil || !ok {
		t.Errorf("CheckFileSum(blake3) = %v, %v", ok, err)
	}
}

func TestCheckFileSums(t *testing.T) {
	dir := t.TempDir()
	paths := map[string]string{}
	sums := map[string]string{}
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("f%02d", i)
		paths[name] = filepath.Join(dir, name)
		writeFile(t, paths[name], name)
		sums[name] = fmt.Sprintf("%x", md5.Sum([]byte(name)))
	}
	sums["f03"] = fmt.Sprintf("%x", md5.Sum([]byte("changed")))
	paths["gone"] = filepath.Join(dir, "gone")
	sums["gone"] = sums["f00"]

	stale, err := CheckFileSums(paths, sums)
	if err != nil {
		t.Fatalf("CheckFileSums() error = %v", err)
	}
	got := map[string]bool{}
	for _, s := range stale {
		got[s] = true
	}
	if len(stale) != 2 || !got["f03"] || !got["gone"] {
		t.Errorf("stale = %v, want [f03 gone]", stale)
	}
}
