package external

import (
	"testing"

	"github.com/copytree/copytree/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_LocalPathPassthrough(t *testing.T) {
	f := New(t.TempDir())
	dir, err := f.Resolve(profile.ExternalSource{Name: "local", Path: "/some/dir"})
	require.NoError(t, err)
	assert.Equal(t, "/some/dir", dir)
}

func TestResolve_LocalPathWithSubdir(t *testing.T) {
	f := New(t.TempDir())
	dir, err := f.Resolve(profile.ExternalSource{Name: "local", Path: "/some/dir", Subdir: "pkg"})
	require.NoError(t, err)
	assert.Equal(t, "/some/dir/pkg", dir)
}

func TestResolve_MissingRepoAndPathErrors(t *testing.T) {
	f := New(t.TempDir())
	_, err := f.Resolve(profile.ExternalSource{Name: "broken"})
	assert.Error(t, err)
}
