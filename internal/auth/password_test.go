package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret1")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret1", hash)

	assert.True(t, CheckPassword(hash, "s3cret1"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret1"))
}
