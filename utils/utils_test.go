package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistinct(t *testing.T) {
	assert.Equal(t, []string{"java.*", "sun.*", "jdk.*"},
		Distinct([]string{"java.*", "sun.*", "", "java.*", "  ", "jdk.*", "sun.*"}))
	assert.Empty(t, Distinct(nil))
}

func TestStatusManager(t *testing.T) {
	s := NewStatusManager()
	assert.True(t, s.Is(Init))
	assert.True(t, s.CompareAndSet(Init, Launching))
	assert.False(t, s.CompareAndSet(Init, Launching))
	assert.True(t, s.Is(Launching, Launched))
	s.Set(Finish)
	assert.Equal(t, Finish, s.Get())
}

func TestGetUUID(t *testing.T) {
	assert.NotEqual(t, GetUUID(), GetUUID())
	assert.Len(t, GetUUID(), 36)
}
