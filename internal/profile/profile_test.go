package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RejectsUnknownTopLevelKey(t *testing.T) {
	_, err := Parse([]byte("name: demo\nbogus_key: true\n"))
	require.Error(t, err)
}

func TestParse_AcceptsWellFormedDocument(t *testing.T) {
	doc := `
name: backend
description: Go services only
include:
  - "**/*.go"
exclude:
  - "vendor/**"
output:
  format: xml
  char_limit: 5000
options:
  max_file_size: 2097152
`
	p, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "backend", p.Name)
	assert.Equal(t, []string{"**/*.go"}, p.Include)
	assert.Equal(t, "xml", p.Output.Format)
	assert.Equal(t, int64(2097152), p.Options.MaxFileSize)
}

func TestValidate_RejectsNegativeLimit(t *testing.T) {
	p := Default()
	p.Options.MaxFileSize = -1
	require.Error(t, p.Validate())
}

func TestValidate_RejectsUnknownFormat(t *testing.T) {
	p := Default()
	p.Output.Format = "yaml"
	require.Error(t, p.Validate())
}

func TestValidate_RejectsExternalSourceMissingRepoOrPath(t *testing.T) {
	p := Default()
	p.External = []ExternalSource{{Name: "lib"}}
	require.Error(t, p.Validate())
}

func TestMerge_ConcatenatesArraysWithOverrideAppended(t *testing.T) {
	base := Default()
	base.Include = []string{"**/*.go"}

	merged := Merge(base, Overrides{Include: []string{"**/*.md"}})
	assert.Equal(t, []string{"**/*.go", "**/*.md"}, merged.Include)
}

func TestMerge_ScalarOverrideReplaces(t *testing.T) {
	base := Default()
	merged := Merge(base, Overrides{Format: "json", CharLimit: 1000})
	assert.Equal(t, "json", merged.Output.Format)
	assert.Equal(t, 1000, merged.Output.CharLimit)
}

func TestMerge_DoesNotMutateBase(t *testing.T) {
	base := Default()
	base.Include = []string{"a"}
	_ = Merge(base, Overrides{Include: []string{"b"}})
	assert.Equal(t, []string{"a"}, base.Include)
}
