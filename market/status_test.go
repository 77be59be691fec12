package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusHolderLifecycle(t *testing.T) {
	var h StatusHolder
	assert.Equal(t, StatusStarting, h.Get())

	assert.True(t, h.Set(StatusActive))
	assert.False(t, h.Set(StatusActive), "ACTIVE is only entered from STARTING")
	assert.True(t, h.Set(StatusStopping))
	assert.Equal(t, StatusStopping, h.Get())

	assert.False(t, h.Set(StatusActive))
	assert.False(t, h.Set(StatusError))
	assert.Equal(t, StatusStopping, h.Get())
}

func TestStatusHolderNoResurrectionFromError(t *testing.T) {
	var h StatusHolder
	assert.True(t, h.Set(StatusError))
	for _, s := range []Status{StatusStarting, StatusActive, StatusStopping} {
		assert.False(t, h.Set(s))
	}
	assert.Equal(t, StatusError, h.Get())
}

func TestStatusHolderRejectsUnknown(t *testing.T) {
	var h StatusHolder
	assert.False(t, h.Set(Status("PAUSED")))
	assert.False(t, h.Set(StatusStarting))
	assert.Equal(t, StatusStarting, h.Get())
}
