package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211", 200*time.Millisecond)
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	err := mc.Set("salewatch_test_key", []byte("test_value"), time.Second)
	require.NoError(t, err)

	value, err := mc.Get("salewatch_test_key")
	require.NoError(t, err)
	assert.Equal(t, "test_value", string(value))

	require.NoError(t, mc.Delete("salewatch_test_key"))

	_, err = mc.Get("salewatch_test_key")
	assert.ErrorIs(t, err, ErrMiss)

	// Deleting twice is fine
	assert.NoError(t, mc.Delete("salewatch_test_key"))
}
