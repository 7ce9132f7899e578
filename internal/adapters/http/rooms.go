package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/debateroom/internal/app/catalog"
	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Message: msg})
}

// respondServiceError maps domain and repository errors to status codes.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRoomTitleEmpty),
		errors.Is(err, domain.ErrRoomTitleTooLong),
		errors.Is(err, domain.ErrRoomDescriptionEmpty),
		errors.Is(err, domain.ErrRoomDescriptionTooLong):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

type roomHandlers struct {
	svc  *catalog.Service
	live LiveView
}

func (h *roomHandlers) list(c *gin.Context) {
	rooms, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *roomHandlers) create(c *gin.Context) {
	var draft domain.RoomDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		respondError(c, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	room, err := h.svc.Create(c.Request.Context(), draft)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *roomHandlers) get(c *gin.Context) {
	room, err := h.svc.Get(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *roomHandlers) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), domain.RoomID(c.Param("id"))); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *roomHandlers) participants(c *gin.Context) {
	room, err := h.svc.Get(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.live.Members(room.ID))
}

func (h *roomHandlers) liveRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.live.LiveRooms())
}
