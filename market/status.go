package market

import "sync"

// Status is the lifecycle state of an exchange adapter or a bot.
type Status string

const (
	StatusStarting Status = "STARTING"
	StatusActive   Status = "ACTIVE"
	StatusStopping Status = "STOPPING"
	StatusError    Status = "ERROR"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusStopping || s == StatusError
}

// StatusHolder guards a Status and only applies legal transitions:
// STARTING -> ACTIVE, and any non-terminal state -> STOPPING or ERROR.
// The zero value is STARTING.
type StatusHolder struct {
	mu     sync.RWMutex
	status Status
}

func (h *StatusHolder) Get() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.status == "" {
		return StatusStarting
	}
	return h.status
}

// Set moves to next and reports whether the transition was applied.
func (h *StatusHolder) Set(next Status) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur := h.status
	if cur == "" {
		cur = StatusStarting
	}
	if cur.Terminal() {
		return false
	}

	switch next {
	case StatusActive:
		if cur != StatusStarting {
			return false
		}
	case StatusStopping, StatusError:
	default:
		return false
	}
	h.status = next
	return true
}
