package objstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStoreRoundTrip(t *testing.T) {
	s, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "filesystem", s.Type())

	ref, err := s.Put(context.Background(), "job-1.txt", strings.NewReader("translated output"), -1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "file://"))

	r, err := s.Get(context.Background(), "job-1.txt")
	require.NoError(t, err)
	defer r.Close()

	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "translated output", string(content))
}

func TestFilesystemStoreOverwrite(t *testing.T) {
	s, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "job-1.txt", strings.NewReader("first"), -1)
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "job-1.txt", strings.NewReader("second"), -1)
	require.NoError(t, err)

	r, err := s.Get(context.Background(), "job-1.txt")
	require.NoError(t, err)
	defer r.Close()

	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestFilesystemStoreMissingKey(t *testing.T) {
	s, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "absent.txt")
	assert.Error(t, err)
}
