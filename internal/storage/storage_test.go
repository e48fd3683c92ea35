package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closingStorage struct {
	closed int
}

func (s *closingStorage) Save(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	return path, nil
}

func (s *closingStorage) Close() error {
	s.closed++
	return nil
}

func TestCloseReleasesClosableBackends(t *testing.T) {
	s := &closingStorage{}
	require.NoError(t, Close(s))
	assert.Equal(t, 1, s.closed)

	local, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, Close(local))
}

func TestGCSClientIsClosable(t *testing.T) {
	var s Storage = &GCSClient{}
	_, ok := s.(interface{ Close() error })
	assert.True(t, ok)
}
