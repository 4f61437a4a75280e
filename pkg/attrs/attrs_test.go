package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	kv := []any{"user_id", "u-1", "attempt", 2, "email", "ana@example.com", "dangling"}

	assert.Equal(t, "u-1", ExtractString(kv, "user_id"))
	assert.Equal(t, "ana@example.com", ExtractString(kv, "email"))
	assert.Equal(t, "", ExtractString(kv, "attempt"), "non-string values are ignored")
	assert.Equal(t, "", ExtractString(kv, "dangling"), "keys without a value are ignored")
	assert.Equal(t, "", ExtractString(nil, "user_id"))
}

func TestWithout(t *testing.T) {
	kv := []any{"user_id", "u-1", "email", "ana@example.com", "reason", "duplicate"}

	got := Without(kv, "email")

	assert.Equal(t, []any{"user_id", "u-1", "reason", "duplicate"}, got)
	assert.Len(t, kv, 6, "input is not modified")
}
