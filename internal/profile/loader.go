package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ProfileDir is the conventional directory, relative to a repository root,
// holding named Profile YAML documents.
const ProfileDir = ".copytree/profiles"

// Load resolves a named profile: reads "<root>/.copytree/profiles/<name>.yaml",
// parses and validates it, and layers it over Default().
func Load(root, name string) (*Profile, error) {
	path := filepath.Join(root, ProfileDir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}

	base := Default()
	base.Include = p.Include
	base.Exclude = p.Exclude
	base.Always = p.Always
	base.Filter = p.Filter
	base.Name = p.Name
	base.Description = p.Description
	base.Transformers = p.Transformers
	if p.Output.Format != "" {
		base.Output.Format = p.Output.Format
	}
	base.Output.Pretty = p.Output.Pretty
	base.Output.LineNumbers = p.Output.LineNumbers
	if p.Output.CharLimit != 0 {
		base.Output.CharLimit = p.Output.CharLimit
	}
	base.Output.ShowMetadata = p.Output.ShowMetadata || base.Output.ShowMetadata
	if p.Options.MaxFileSize != 0 {
		base.Options.MaxFileSize = p.Options.MaxFileSize
	}
	if p.Options.MaxTotalSize != 0 {
		base.Options.MaxTotalSize = p.Options.MaxTotalSize
	}
	base.Options.MaxFileCount = p.Options.MaxFileCount
	base.Options.FollowSymlinks = p.Options.FollowSymlinks
	base.Options.IncludeHidden = p.Options.IncludeHidden
	base.Options.RespectGitignore = p.Options.RespectGitignore
	base.External = p.External

	return base, nil
}

// List returns the names of every profile document under
// "<root>/.copytree/profiles", sorted lexically. A missing directory yields
// an empty list, not an error.
func List(root string) ([]string, error) {
	dir := filepath.Join(root, ProfileDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	sort.Strings(names)
	return names, nil
}
