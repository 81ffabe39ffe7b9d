// Package external implements the External Source Fetcher (spec.md §4.14):
// resolving a profile's externalSources entries to a local directory, either
// by cloning/updating a git repository or passing a local path through
// unchanged.
package external

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/copytree/copytree/internal/profile"
)

// Fetcher resolves ExternalSource entries into local, ready-to-walk
// directories, caching git clones under CacheDir so repeated runs reuse the
// same checkout. Grounded on discovery.GitTrackedFiles' os/exec shellout
// convention, extended to clone/fetch/checkout.
type Fetcher struct {
	CacheDir string
}

// New creates a Fetcher that clones/updates repositories under cacheDir.
func New(cacheDir string) *Fetcher {
	return &Fetcher{CacheDir: cacheDir}
}

// Resolve returns the local directory that should be walked for src. Local
// sources (src.Path set) are returned as-is; git sources (src.Repo set) are
// cloned on first use and fetched+checked-out on subsequent calls.
func (f *Fetcher) Resolve(src profile.ExternalSource) (string, error) {
	if src.Path != "" {
		dir := src.Path
		if src.Subdir != "" {
			dir = filepath.Join(dir, src.Subdir)
		}
		return dir, nil
	}

	if src.Repo == "" {
		return "", fmt.Errorf("external source %q: neither repo nor path set", src.Name)
	}

	checkout := filepath.Join(f.CacheDir, "external", repoDirName(src.Repo))

	if _, err := os.Stat(filepath.Join(checkout, ".git")); err == nil {
		if err := f.update(checkout, src.Ref); err != nil {
			return "", err
		}
	} else {
		if err := f.clone(src.Repo, checkout, src.Ref); err != nil {
			return "", err
		}
	}

	dir := checkout
	if src.Subdir != "" {
		dir = filepath.Join(dir, src.Subdir)
	}
	return dir, nil
}

func (f *Fetcher) clone(repo, dest, ref string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating external source cache dir: %w", err)
	}

	args := []string{"clone", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, repo, dest)

	cmd := exec.Command("git", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone %s failed: %w: %s", repo, err, string(out))
	}
	return nil
}

func (f *Fetcher) update(checkout, ref string) error {
	fetch := exec.Command("git", "fetch", "--depth", "1", "origin")
	fetch.Dir = checkout
	if out, err := fetch.CombinedOutput(); err != nil {
		return fmt.Errorf("git fetch in %s failed: %w: %s", checkout, err, string(out))
	}

	target := "FETCH_HEAD"
	if ref != "" {
		target = ref
	}
	checkoutCmd := exec.Command("git", "checkout", target)
	checkoutCmd.Dir = checkout
	if out, err := checkoutCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git checkout %s in %s failed: %w: %s", target, checkout, err, string(out))
	}
	return nil
}

// repoDirName derives a stable, filesystem-safe directory name for a repo URL.
func repoDirName(repo string) string {
	sum := sha256.Sum256([]byte(repo))
	return hex.EncodeToString(sum[:])[:16]
}
