package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	logger, err := New(false, "debug")
	require.NoError(t, err)

	ctx := WithContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	// Contexts without a logger fall back to the global one.
	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, FromContext(nil))
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(true, "not-a-level")
	assert.Error(t, err)
}
