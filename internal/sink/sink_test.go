package sink

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_WritesAndClosesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	s, err := NewFileSink(path)
	require.NoError(t, err)

	_, err = s.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestStdoutSink_WritesToUnderlyingWriter(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdoutSink(&buf)

	_, err := s.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Equal(t, "hi", buf.String())
}

func TestTeeSink_MirrorsToBothDestinations(t *testing.T) {
	var primary, secondary bytes.Buffer
	tee := NewTeeSink(NewStdoutSink(&primary), NewStdoutSink(&secondary))

	_, err := tee.Write([]byte("mirrored"))
	require.NoError(t, err)
	require.NoError(t, tee.Close())

	assert.Equal(t, "mirrored", primary.String())
	assert.Equal(t, "mirrored", secondary.String())
}
