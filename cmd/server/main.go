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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/castrelay/internal/adapters/http"
	"github.com/dkeye/castrelay/internal/adapters/rtc"
	signaling "github.com/dkeye/castrelay/internal/adapters/signal"
	"github.com/dkeye/castrelay/internal/app"
	"github.com/dkeye/castrelay/internal/app/orch"
	"github.com/dkeye/castrelay/internal/config"
	"github.com/dkeye/castrelay/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	action, err := app.ParseBackpressureAction(cfg.Signal.Backpressure)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid backpressure policy")
	}

	reg := app.NewRoomRegistry()
	relay := app.NewSignalingRelay(reg, app.RelayOptions{StrictOffer: cfg.Signal.StrictOffer})

	var media core.MediaBackend
	if cfg.Media.Enabled {
		backend := rtc.NewBackend(rtc.DefaultWebRTCConfig(cfg.Media.ICEServers), cfg.Media.GatherTimeout)
		defer backend.Close()
		media = backend
		log.Info().Strs("ice", cfg.Media.ICEServers).Msg("media backend enabled")
	}
	o := orch.New(relay, media)

	var limiter *signaling.RoomRateLimiter
	if cfg.Signal.RateLimit > 0 {
		limiter = signaling.NewRoomRateLimiter(cfg.Signal.RateLimit, cfg.Signal.RateInterval)
	}
	hub := signaling.NewHub(app.SimplePolicy{Action: action})
	ctl := signaling.NewSignalWSController(o, hub, limiter, signaling.Options{
		AutoCreateRooms: cfg.Signal.AutoCreateRooms,
		ReadLimit:       cfg.ReadLimit,
		PingPeriod:      cfg.PingPeriod,
		WriteTimeout:    cfg.Signal.WriteTimeout,
		SendBuffer:      cfg.Signal.SendBuffer,
	})

	r := router.SetupRouter(ctx, cfg, o, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("castrelay server started")
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
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("Server exited gracefully")
}
