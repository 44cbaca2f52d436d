package blobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/campaign-engine/internal/errs"
)

func TestGetReturnsSeededBlob(t *testing.T) {
	s := NewMemoryBlobStore()
	s.Put("logo.png", []byte("pngdata"), "image/png")

	data, contentType, err := s.Get(context.Background(), "logo.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("pngdata"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := NewMemoryBlobStore()
	_, _, err := s.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
