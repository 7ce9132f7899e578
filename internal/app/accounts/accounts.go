// Package accounts handles signup and password login.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type Service struct {
	repo core.AccountRepo
	cost int
	now  func() time.Time
}

func NewService(repo core.AccountRepo) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost, now: time.Now}
}

func (s *Service) Signup(ctx context.Context, username, password string) (domain.Account, error) {
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		return domain.Account{}, err
	}
	if password == "" {
		return domain.Account{}, domain.ErrPasswordEmpty
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}
	acc := domain.Account{Username: name, PasswordHash: hash, CreatedAt: s.now().UTC()}
	if err := s.repo.Create(ctx, acc); err != nil {
		return domain.Account{}, err
	}
	log.Info().Str("module", "app.accounts").Str("username", name).Msg("signed up")
	return acc, nil
}

// Login never tells apart an unknown user from a wrong password.
func (s *Service) Login(ctx context.Context, username, password string) (domain.Account, error) {
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		return domain.Account{}, ErrInvalidCredentials
	}
	acc, err := s.repo.Get(ctx, name)
	if errors.Is(err, core.ErrAccountNotFound) {
		return domain.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Account{}, err
	}
	if bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) != nil {
		log.Warn().Str("module", "app.accounts").Str("username", name).Msg("login failed")
		return domain.Account{}, ErrInvalidCredentials
	}
	return acc, nil
}
