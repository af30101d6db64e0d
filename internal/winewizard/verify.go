package winewizard

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// EnsureArtifacts makes every file of the closure present in the cache with
// a matching checksum, fetching the missing or stale ones.
func EnsureArtifacts(ctx context.Context, repo *Repository, files FileSet, paths Paths, fetcher Fetcher) error {
	local := make(map[string]string, len(files))
	sums := make(map[string]string, len(files))
	for name := range files {
		entry, ok := repo.File(name)
		if !ok {
			return manifestErrorf("file %s is required but not declared in [Files]", name)
		}
		local[name] = paths.CacheFile(name)
		sums[name] = entry.Sum
	}

	stale, err := CheckFileSums(local, sums)
	if err != nil {
		return fmt.Errorf("failed to verify cached files: %w", err)
	}
	sort.Strings(stale)

	for _, name := range stale {
		entry, _ := repo.File(name)
		colArrow.Print("-> ")
		colSuccess.Printf("Fetching %s\n", name)
		err := fetcher.Fetch(ctx, FetchRequest{
			Mirrors:  entry.Mirrors,
			Dest:     local[name],
			Checksum: entry.Sum,
			Recovery: entry.Recovery,
		})
		if errors.Is(err, ErrAcquisitionCancelled) {
			return err
		}
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", name, err)
		}
	}
	return nil
}
