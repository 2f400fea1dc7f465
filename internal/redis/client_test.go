package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeRejectsBadURL(t *testing.T) {
	c, err := Initialize("not a redis url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")
	assert.Nil(t, c)
}
