package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWithContext(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithContext(context.Background(), logger)

	got := FromContext(ctx)
	assert.Same(t, logger, got)
}

func TestFromContextReturnsNopWhenMissing(t *testing.T) {
	got := FromContext(context.Background())
	require.NotNil(t, got)
	// Must be safe to use
	got.Info("no-op")
}

func TestWithRunID(t *testing.T) {
	logger := zap.NewNop()
	ctx, enriched := WithRunID(context.Background(), logger, "run-20260801-01")

	assert.Equal(t, "run-20260801-01", GetRunID(ctx))
	assert.NotNil(t, enriched)
	assert.Same(t, enriched, FromContext(ctx))
}

func TestWithTenantID(t *testing.T) {
	logger := zap.NewNop()
	ctx, enriched := WithTenantID(context.Background(), logger, "tenant-123")

	assert.Equal(t, "tenant-123", GetTenantID(ctx))
	assert.NotNil(t, enriched)
}

func TestGetRunIDMissing(t *testing.T) {
	assert.Equal(t, "", GetRunID(context.Background()))
	assert.Equal(t, "", GetTenantID(context.Background()))
}
