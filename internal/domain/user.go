// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxParticipantIDLen = 36
	MaxDisplayNameLen   = 50
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrParticipantIDEmpty = errors.New("participant id empty")
)

// ParticipantID is the opaque per-profile identity. It is the only authority
// for deciding whether a message belongs to the local participant.
type ParticipantID string

type ParticipantIdentity struct {
	ID          ParticipantID `json:"id"`
	DisplayName string        `json:"name"`
}

// NewParticipantIdentity is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipantIdentity(id ParticipantID, displayName string) (ParticipantIdentity, error) {
	if id == "" {
		return ParticipantIdentity{}, ErrParticipantIDEmpty
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return ParticipantIdentity{}, ErrDisplayNameEmpty
	}
	if utf8.RuneCountInString(displayName) > MaxDisplayNameLen {
		return ParticipantIdentity{}, ErrDisplayNameTooLong
	}
	return ParticipantIdentity{ID: id, DisplayName: displayName}, nil
}
