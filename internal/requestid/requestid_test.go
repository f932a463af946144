package requestid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", FromContext(ctx))
}

func TestFromContext_GeneratesWhenAbsent(t *testing.T) {
	id := FromContext(context.Background())
	assert.NotEmpty(t, id)

	other := FromContext(context.Background())
	assert.NotEqual(t, id, other)
}

func TestNew(t *testing.T) {
	ctx, id := New(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, FromContext(ctx))
}
