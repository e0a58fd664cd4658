package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"werewolf-party/internal/config"
	"werewolf-party/internal/db"
	"werewolf-party/internal/logging"
	"werewolf-party/internal/room"
	"werewolf-party/internal/server"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logging.Log.WithError(err).Warn("failed to load .env")
	}
	logging.Init()
	cfg := config.Load()

	var rosters config.Rosters
	if cfg.RosterPath != "" {
		loaded, err := config.LoadRosters(cfg.RosterPath)
		if err != nil {
			logging.Log.WithError(err).Fatal("load rosters")
		}
		rosters = loaded
	}

	store := db.NewRoomStore(nil)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg)
		if err != nil {
			logging.Log.WithError(err).Fatal("database connection failed")
		}
		if err := db.Migrate(conn); err != nil {
			logging.Log.WithError(err).Fatal("database migration failed")
		}
		store = db.NewRoomStore(conn)
	} else {
		logging.Log.Warn("DATABASE_URL is not set; rooms will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rooms := room.NewRegistry(ctx, timings(cfg), store)
	srv := server.New(cfg, rooms, rosters)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Log.WithField("addr", httpServer.Addr).Info("werewolf server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	logging.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Log.WithError(err).Warn("http shutdown")
	}
	rooms.Wait(shutdownCtx)
}

func timings(cfg config.Config) room.Timings {
	return room.Timings{
		Tick:           time.Duration(cfg.ServerTickMS) * time.Millisecond,
		AlarmInterval:  time.Duration(cfg.AlarmIntervalMS) * time.Millisecond,
		StartCountdown: int64(cfg.StartCountdownMS),
		RoleTurn:       int64(cfg.RoleTurnMS),
		LoversTurn:     int64(cfg.LoversTurnMS),
		Vote:           int64(cfg.VoteMS),
		WakeDelay:      int64(cfg.WakeDelayMS),
		PhasePause:     int64(cfg.PhasePauseMS),
		Happening:      int64(cfg.HappeningMS),
		HappeningDelay: int64(cfg.HappeningDelayMS),
		EndCountdown:   int64(cfg.EndCountdownMS),
	}
}
