package http

import (
	"context"

	"github.com/dkeye/debateroom/internal/adapters/relay"
	"github.com/dkeye/debateroom/internal/app/accounts"
	"github.com/dkeye/debateroom/internal/app/catalog"
	"github.com/dkeye/debateroom/internal/config"
	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sessionName = "DebateSessions"

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// LiveView reports relay membership. Optional.
type LiveView interface {
	Members(room domain.RoomID) []core.MemberDTO
	LiveRooms() []core.RoomInfo
}

// Deps are the application services the router exposes.
type Deps struct {
	Rooms    *catalog.Service
	Accounts *accounts.Service
	Relay    *relay.Controller
	Live     LiveView
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	rooms := &roomHandlers{svc: deps.Rooms, live: deps.Live}
	debate := r.Group("/debate")
	debate.GET("/rooms", rooms.list)
	debate.POST("/rooms", rooms.create)
	debate.GET("/rooms/:id", rooms.get)
	debate.DELETE("/rooms/:id", rooms.delete)
	if deps.Live != nil {
		debate.GET("/rooms/:id/participants", rooms.participants)
		debate.GET("/live", rooms.liveRooms)
	}

	auth := &authHandlers{svc: deps.Accounts}
	api := r.Group("/api/auth")
	api.POST("/signup", auth.signup)
	api.POST("/login", auth.login)
	api.POST("/logout", auth.logout)
	api.GET("/me", auth.me)

	r.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client_token", c.GetString("client_token")).Msg("ws endpoint hit")
		deps.Relay.HandleWS(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
