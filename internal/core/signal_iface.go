package core

import (
	"context"

	"github.com/dkeye/debateroom/internal/domain"
)

// Frame is a raw text payload carried by the pub/sub transport.
type Frame []byte

// Inbound is one frame delivered on a subscribed topic.
type Inbound struct {
	Subscription string
	Destination  string
	Body         Frame
}

// PubSubConn abstracts the client side of one logical real-time channel.
// Owned by the caller that dialed it; the caller must Close() it.
type PubSubConn interface {
	// Subscribe registers interest in a topic and returns the subscription id.
	Subscribe(destination string) (string, error)
	Unsubscribe(id string) error
	Publish(destination string, body Frame) error
	// Inbound delivers frames in transport order. It is never closed; watch Done.
	Inbound() <-chan Inbound
	// Done is closed once the connection is unusable (dropped or closed).
	Done() <-chan struct{}
	Close() error
}

// Dialer opens a PubSubConn announcing the given identity in the handshake.
type Dialer interface {
	Dial(ctx context.Context, who domain.ParticipantIdentity) (PubSubConn, error)
}

// SignalConnection abstracts the relay side of one client channel.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
