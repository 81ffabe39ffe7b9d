package discovery

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// GitQuery answers the GitFilter stage's questions about working-tree state:
// which paths are modified relative to the index, and which paths changed
// relative to an arbitrary ref. Grounded on GitTrackedFiles' os/exec shellout
// convention, extended to the two additional git subcommands spec.md §4.9
// stage 3 requires.
type GitQuery struct {
	root string
}

// NewGitQuery creates a GitQuery rooted at root.
func NewGitQuery(root string) *GitQuery {
	return &GitQuery{root: root}
}

// Modified returns the set of paths with uncommitted modifications,
// equivalent to `git status --porcelain`, restricted to modified/added/
// renamed/deleted working-tree entries (untracked files are included since
// they represent real working-tree changes a user likely wants reflected).
func (q *GitQuery) Modified() (map[string]bool, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = q.root

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status failed in %s: %w (is this a git repository?)", q.root, err)
	}

	paths := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Renames report as "old -> new"; track the destination path.
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		if path != "" {
			paths[path] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git status output: %w", err)
	}

	return paths, nil
}

// Changed returns the set of paths that differ between ref and the working
// tree, equivalent to `git diff --name-only <ref>`.
func (q *GitQuery) Changed(ref string) (map[string]bool, error) {
	cmd := exec.Command("git", "diff", "--name-only", ref)
	cmd.Dir = q.root

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff --name-only %s failed in %s: %w", ref, q.root, err)
	}

	paths := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			paths[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing git diff output: %w", err)
	}

	return paths, nil
}

// Status returns a short git-status tag for path ("modified", "added",
// "deleted", "renamed", "untracked", "clean"), used to annotate records when
// --with-git-status is set.
func (q *GitQuery) Status(path string) (string, error) {
	cmd := exec.Command("git", "status", "--porcelain", "--", path)
	cmd.Dir = q.root

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git status failed for %s: %w", path, err)
	}

	line := strings.TrimSpace(string(output))
	if line == "" {
		return "clean", nil
	}
	code := strings.TrimSpace(line[:2])
	switch {
	case strings.Contains(code, "A"):
		return "added", nil
	case strings.Contains(code, "D"):
		return "deleted", nil
	case strings.Contains(code, "R"):
		return "renamed", nil
	case strings.Contains(code, "?"):
		return "untracked", nil
	default:
		return "modified", nil
	}
}
