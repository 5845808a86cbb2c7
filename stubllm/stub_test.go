package stubllm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubIsDeterministic(t *testing.T) {
	c := NewClient()
	img := []byte{0xff, 0xd8, 0x01, 0x02}

	first, err := c.GenerateText(context.Background(), "prompt", img)
	require.NoError(t, err)
	second, err := c.GenerateText(context.Background(), "other prompt", img)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, labels, first)
	assert.Equal(t, "Stub", c.SourceName())
}

func TestStubHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient().GenerateText(ctx, "prompt", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
