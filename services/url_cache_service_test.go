package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPresigner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPresigner) PresignRead(ctx context.Context, objectKey string) (string, error) {
	n := p.calls.Add(1)
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("https://bucket.example/%s?sig=%d", objectKey, n), nil
}

func TestURLCacheServiceReturnsPresignedURL(t *testing.T) {
	presigner := &countingPresigner{}
	svc, err := NewURLCacheService(presigner, time.Minute)
	require.NoError(t, err)

	url, err := svc.GetReadURL(context.Background(), "clothes/1.png")
	require.NoError(t, err)
	assert.Contains(t, url, "https://bucket.example/clothes/1.png")
	assert.GreaterOrEqual(t, presigner.calls.Load(), int32(1))
}

func TestURLCacheServiceEmptyKey(t *testing.T) {
	presigner := &countingPresigner{}
	svc, err := NewURLCacheService(presigner, time.Minute)
	require.NoError(t, err)

	url, err := svc.GetReadURL(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Equal(t, int32(0), presigner.calls.Load())
}

func TestURLCacheServicePropagatesPresignErrors(t *testing.T) {
	svc, err := NewURLCacheService(&countingPresigner{err: errors.New("r2 down")}, time.Minute)
	require.NoError(t, err)

	_, err = svc.GetReadURL(context.Background(), "clothes/2.png")
	assert.Error(t, err)
}
