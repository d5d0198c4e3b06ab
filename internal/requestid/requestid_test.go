package requestid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	ctx, id := New(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, FromContext(ctx))
}

func TestFromContext_Missing(t *testing.T) {
	id := FromContext(context.Background())
	assert.NotEmpty(t, id) // generates new UUID
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "test-123")
	assert.Equal(t, "test-123", FromContext(ctx))
}

func TestFromHeader(t *testing.T) {
	const supplied = "2f1c8c1e-6a0e-4a55-9a64-0d1b7c9f3e21"
	ctx, id := FromHeader(context.Background(), " "+supplied+" ")
	assert.Equal(t, supplied, id)
	assert.Equal(t, supplied, FromContext(ctx))

	_, generated := FromHeader(context.Background(), "not-a-uuid; DROP TABLE")
	assert.NotEqual(t, "not-a-uuid; DROP TABLE", generated)
	assert.Len(t, generated, 36)
}
