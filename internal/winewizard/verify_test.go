package winewizard

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"testing"
)

const verifyRepo = `WineWizardVersion = 1

[Packages32.app]
Files = app.bin, lib.bin

[Files.app.bin]
Sum = %s
Mirrors = https://mirror.test/app.bin

[Files.lib.bin]
Sum = %s
Mirrors = https://mirror.test/lib.bin
`

func TestEnsureArtifactsFetchesMismatch(t *testing.T) {
	paths := testPaths(t)
	appSum := fmt.Sprintf("%x", md5.Sum([]byte("app v2")))
	libSum := fmt.Sprintf("%x", md5.Sum([]byte("lib")))
	repo := mustParseRepository(t, fmt.Sprintf(verifyRepo, appSum, libSum))

	// app.bin is cached but outdated, lib.bin is current
	writeFile(t, paths.CacheFile("app.bin"), "app v1")
	writeFile(t, paths.CacheFile("lib.bin"), "lib")

	fetcher := newFakeFetcher()
	fetcher.content["https://mirror.test/app.bin"] = "app v2"

	files, err := RequiredFiles("app", "32", repo)
	if err != nil {
		t.Fatal(err)
	}
	if err := EnsureArtifacts(context.Background(), repo, files, paths, fetcher); err != nil {
		t.Fatalf("EnsureArtifacts() error = %v", err)
	}
	if !fetcher.fetched(paths.CacheFile("app.bin")) {
		t.Error("mismatched file was not fetched")
	}
	if fetcher.fetched(paths.CacheFile("lib.bin")) {
		t.Error("matching file was fetched again")
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("fetch calls = %d, want 1", len(fetcher.calls))
	}
	if fetcher.calls[0].Checksum != appSum {
		t.Errorf("fetch checksum = %q, want %q", fetcher.calls[0].Checksum, appSum)
	}
}

func TestEnsureArtifactsUndeclaredFile(t *testing.T) {
	paths := testPaths(t)
	repo := mustParseRepository(t, "WineWizardVersion = 1\n[Packages32.a]\nFiles = nowhere.bin\n")
	files, _ := RequiredFiles("a", "32", repo)
	err := EnsureArtifacts(context.Background(), repo, files, paths, newFakeFetcher())
	if !errors.Is(err, ErrManifest) {
		t.Fatalf("error = %v, want ErrManifest", err)
	}
}

func TestEnsureArtifactsCancelled(t *testing.T) {
	paths := testPaths(t)
	repo := mustParseRepository(t, fmt.Sprintf(verifyRepo, "", ""))
	files, _ := RequiredFiles("app", "32", repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := EnsureArtifacts(ctx, repo, files, paths, newFakeFetcher())
	if !errors.Is(err, ErrAcquisitionCancelled) {
		t.Fatalf("error = %v, want ErrAcquisitionCancelled", err)
	}
}
