package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxRoomTitleLen       = 50
	MaxRoomDescriptionLen = 200
)

var (
	ErrRoomTitleEmpty         = errors.New("room title empty")
	ErrRoomTitleTooLong       = errors.New("room title too long")
	ErrRoomDescriptionEmpty   = errors.New("room description empty")
	ErrRoomDescriptionTooLong = errors.New("room description too long")
)

type RoomID string

// Room is the metadata of a debate room as served by the rooms API.
type Room struct {
	ID                RoomID    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	CreatedAt         time.Time `json:"createdAt"`
	ParticipantsCount int       `json:"participantsCount"`
}

// RoomDraft is the payload of a room creation request.
type RoomDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Validate trims the draft and checks the length limits (counted in characters).
func (d *RoomDraft) Validate() error {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	switch {
	case d.Title == "":
		return ErrRoomTitleEmpty
	case utf8.RuneCountInString(d.Title) > MaxRoomTitleLen:
		return ErrRoomTitleTooLong
	case d.Description == "":
		return ErrRoomDescriptionEmpty
	case utf8.RuneCountInString(d.Description) > MaxRoomDescriptionLen:
		return ErrRoomDescriptionTooLong
	}
	return nil
}
