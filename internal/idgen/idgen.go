// Package idgen generates the identifiers used on the wire.
package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/dkeye/debateroom/internal/domain"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

// NewMessageID returns a lexically sortable, collision-resistant message id.
func NewMessageID() domain.MessageID {
	return domain.MessageID(NewULID())
}

func NewParticipantID() domain.ParticipantID {
	return domain.ParticipantID(uuid.NewString())
}
