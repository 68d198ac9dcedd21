package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, 1<<10, orInt(0, 1<<10))
	assert.Equal(t, 7, orInt(7, 1<<10))
	assert.Equal(t, time.Second, orDuration(-1, time.Second))
	assert.Equal(t, 3*time.Second, orDuration(3*time.Second, time.Second))
}
