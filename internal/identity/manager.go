// Package identity resolves the stable per-profile participant identity.
//
// The id is created lazily on first use, persisted in client-local storage
// and never mutated afterwards. Callers resolve it once and pass the value
// explicitly into the realtime layer.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dkeye/debateroom/internal/domain"
	"github.com/dkeye/debateroom/internal/idgen"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type record struct {
	ID   domain.ParticipantID `json:"id"`
	Name string               `json:"name,omitempty"`
}

type Manager struct {
	fs   afero.Fs
	path string

	mu  sync.Mutex
	rec *record
}

func NewManager(fsys afero.Fs, path string) *Manager {
	return &Manager{fs: fsys, path: path}
}

// DefaultPath is the identity file under the user's config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "debateroom", "identity.json")
}

// GetOrCreateParticipantID is idempotent for a given storage location. When
// storage is unusable the id lives in memory for the rest of the process.
func (m *Manager) GetOrCreateParticipantID() domain.ParticipantID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveLocked().ID
}

func (m *Manager) resolveLocked() *record {
	if m.rec != nil {
		return m.rec
	}
	rec, err := m.load()
	if err == nil && rec.ID != "" {
		m.rec = &rec
		return m.rec
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("module", "identity").Str("path", m.path).Msg("unreadable identity, generating a new one")
	}

	m.rec = &record{ID: idgen.NewParticipantID()}
	if err := m.save(*m.rec); err != nil {
		log.Warn().Err(err).Str("module", "identity").Str("path", m.path).Msg("identity storage unavailable, id is session-only")
	} else {
		log.Info().Str("module", "identity").Str("participant", string(m.rec.ID)).Msg("created participant id")
	}
	return m.rec
}

// Remember binds a display name (from login) to the participant id and
// persists it. The id itself is never changed.
func (m *Manager) Remember(displayName string) (domain.ParticipantIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.resolveLocked()
	ident, err := domain.NewParticipantIdentity(rec.ID, displayName)
	if err != nil {
		return domain.ParticipantIdentity{}, err
	}
	rec.Name = ident.DisplayName
	if err := m.save(*rec); err != nil {
		log.Warn().Err(err).Str("module", "identity").Msg("failed to persist display name")
	}
	return ident, nil
}

// Current returns the remembered identity, if a display name was ever set.
func (m *Manager) Current() (domain.ParticipantIdentity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.resolveLocked()
	if rec.Name == "" {
		return domain.ParticipantIdentity{}, false
	}
	return domain.ParticipantIdentity{ID: rec.ID, DisplayName: rec.Name}, true
}

func (m *Manager) load() (record, error) {
	var rec record
	b, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("decode identity: %w", err)
	}
	return rec, nil
}

func (m *Manager) save(rec record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := m.fs.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := afero.WriteFile(m.fs, tmp, b, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return m.fs.Rename(tmp, m.path)
}
