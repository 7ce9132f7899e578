package realtime

import (
	"errors"
	"time"
)

const (
	DefaultReconnectDelay = 5 * time.Second
	DefaultTypingTTL      = 3 * time.Second
	// initialParticipants is shown until the first count frame arrives.
	initialParticipants = 1
)

var (
	ErrNotConnected = errors.New("realtime: channel not connected")
	ErrClosed       = errors.New("realtime: channel torn down")
	ErrNoRoom       = errors.New("realtime: room id required")
	ErrNoIdentity   = errors.New("realtime: participant identity required")
)

type Options struct {
	// ReconnectDelay is the fixed wait between connect attempts.
	ReconnectDelay time.Duration
	// TypingTTL is how long a remote typing indicator stays visible.
	TypingTTL time.Duration
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.TypingTTL <= 0 {
		o.TypingTTL = DefaultTypingTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
