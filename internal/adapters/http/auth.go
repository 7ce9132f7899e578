package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/debateroom/internal/adapters/relay"
	"github.com/dkeye/debateroom/internal/app/accounts"
	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type credentials struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

type userResponse struct {
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}

type authHandlers struct {
	svc *accounts.Service
}

func (h *authHandlers) signup(c *gin.Context) {
	var in credentials
	if err := c.ShouldBind(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid form")
		return
	}
	acc, err := h.svc.Signup(c.Request.Context(), in.Username, in.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, userResponse{Username: acc.Username, Message: "signed up"})
	case errors.Is(err, core.ErrAccountExists):
		respondError(c, http.StatusConflict, "username already taken")
	case errors.Is(err, domain.ErrUsernameEmpty),
		errors.Is(err, domain.ErrUsernameTooLong),
		errors.Is(err, domain.ErrPasswordEmpty):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("signup failed")
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

func (h *authHandlers) login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBind(&in); err != nil {
		respondError(c, http.StatusBadRequest, "invalid form")
		return
	}
	acc, err := h.svc.Login(c.Request.Context(), in.Username, in.Password)
	if errors.Is(err, accounts.ErrInvalidCredentials) {
		respondError(c, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("login failed")
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}

	sess := sessions.Default(c)
	sess.Set(relay.SessionUserKey, acc.Username)
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
		respondError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, userResponse{Username: acc.Username, Message: "logged in"})
}

func (h *authHandlers) logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}

func (h *authHandlers) me(c *gin.Context) {
	name, ok := sessions.Default(c).Get(relay.SessionUserKey).(string)
	if !ok || name == "" {
		respondError(c, http.StatusUnauthorized, "not logged in")
		return
	}
	c.JSON(http.StatusOK, userResponse{Username: name})
}
