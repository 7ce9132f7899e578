package realtime

// ParticipantCounter keeps the latest broadcast count. No history, no clamp.
type ParticipantCounter struct {
	n int
}

func NewParticipantCounter() *ParticipantCounter {
	return &ParticipantCounter{n: initialParticipants}
}

// Set replaces the count and reports whether it changed.
func (c *ParticipantCounter) Set(n int) bool {
	if c.n == n {
		return false
	}
	c.n = n
	return true
}

func (c *ParticipantCounter) Value() int { return c.n }
