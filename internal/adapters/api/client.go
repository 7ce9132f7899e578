// Package api is the HTTP client for the room catalog and auth endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx answer. Message comes from the {"message": ...} body when present.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var out []domain.Room
	if err := c.doJSON(ctx, http.MethodGet, "/debate/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateRoom(ctx context.Context, draft domain.RoomDraft) (domain.Room, error) {
	if err := draft.Validate(); err != nil {
		return domain.Room{}, err
	}
	var out domain.Room
	if err := c.doJSON(ctx, http.MethodPost, "/debate/rooms", draft, &out); err != nil {
		return domain.Room{}, err
	}
	return out, nil
}

func (c *Client) GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error) {
	var out domain.Room
	if err := c.doJSON(ctx, http.MethodGet, "/debate/rooms/"+url.PathEscape(string(id)), nil, &out); err != nil {
		return domain.Room{}, err
	}
	return out, nil
}

func (c *Client) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	return c.doJSON(ctx, http.MethodDelete, "/debate/rooms/"+url.PathEscape(string(id)), nil, nil)
}

// Participants lists who is connected to a room right now.
func (c *Client) Participants(ctx context.Context, id domain.RoomID) ([]core.MemberDTO, error) {
	var out []core.MemberDTO
	if err := c.doJSON(ctx, http.MethodGet, "/debate/rooms/"+url.PathEscape(string(id))+"/participants", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LiveRooms(ctx context.Context) ([]core.RoomInfo, error) {
	var out []core.RoomInfo
	if err := c.doJSON(ctx, http.MethodGet, "/debate/live", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Signup registers a username. The server answers with the stored name.
func (c *Client) Signup(ctx context.Context, username, password string) (string, error) {
	return c.auth(ctx, "signup", username, password)
}

// Login checks credentials and returns the username to use as display name.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	return c.auth(ctx, "login", username, password)
}

func (c *Client) auth(ctx context.Context, endpoint, username, password string) (string, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/auth/"+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var out struct {
		Username string `json:"username"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Username, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	log.Debug().Str("module", "adapters.api").Str("method", req.Method).Str("path", req.URL.Path).Int("status", resp.StatusCode).Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Status: resp.StatusCode}
		var e struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e) == nil {
			se.Message = e.Message
		}
		return se
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}
