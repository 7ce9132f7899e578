package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxUsernameLen = MaxDisplayNameLen

var (
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
	ErrPasswordEmpty   = errors.New("password empty")
)

// Account is a registered login. The username doubles as the display name.
type Account struct {
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeUsername trims and length-checks a username.
func NormalizeUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", ErrUsernameEmpty
	case utf8.RuneCountInString(name) > MaxUsernameLen:
		return "", ErrUsernameTooLong
	}
	return name, nil
}
