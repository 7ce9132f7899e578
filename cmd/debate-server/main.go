package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/debateroom/internal/adapters/http"
	"github.com/dkeye/debateroom/internal/adapters/relay"
	"github.com/dkeye/debateroom/internal/app"
	"github.com/dkeye/debateroom/internal/app/accounts"
	"github.com/dkeye/debateroom/internal/app/catalog"
	"github.com/dkeye/debateroom/internal/config"
	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/repo"
)

func main() {
	fs := pflag.NewFlagSet("debate-server", pflag.ExitOnError)
	fs.Int("port", 8080, "listen port")
	fs.String("mode", "release", "gin mode (release, debug, test)")
	fs.String("redis-addr", "", "redis address; empty keeps rooms and accounts in memory")
	fs.String("log-level", "info", "log level")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.SetupLogging()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func stores(ctx context.Context, cfg *config.Config) (core.RoomRepo, core.AccountRepo, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info().Str("module", "cmd.server").Msg("using in-memory storage")
		return repo.NewMemoryRoomRepo(), repo.NewMemoryAccountRepo(), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	log.Info().Str("module", "cmd.server").Str("addr", cfg.RedisAddr).Msg("using redis storage")
	return repo.NewRedisRoomRepo(rdb), repo.NewRedisAccountRepo(rdb), func() { _ = rdb.Close() }, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	roomRepo, accountRepo, closeStores, err := stores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	orch := app.NewOrchestrator(app.NewRegistry(), app.NewRoomManager(), app.SimplePolicy{})
	rooms := catalog.NewService(roomRepo, orch, orch)
	ctl := relay.NewController(orch, relay.NewRateLimiter(cfg.RateLimit, cfg.RateInterval), rooms)
	ctl.ReadLimit = cfg.ReadLimit
	ctl.PingPeriod = cfg.PingPeriod

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Rooms:    rooms,
		Accounts: accounts.NewService(accountRepo),
		Relay:    ctl,
		Live:     orch,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("debate server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("forced shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
