package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/assocworks/member-chat/auth"
	"github.com/assocworks/member-chat/chat"
	"github.com/assocworks/member-chat/config"
	"github.com/assocworks/member-chat/globals"
	"github.com/assocworks/member-chat/persistence"
	"github.com/assocworks/member-chat/types"
	"github.com/assocworks/member-chat/ws"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	addr       = pflag.String("addr", "localhost:8000", "ws service address (including port)")
	sslCert    = pflag.String("ssl-cert", "", "SSL cert for websocket (optional)")
	sslKey     = pflag.String("ssl-key", "", "SSL key for websocket (optional)")
)

func main() {
	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		globals.AppLogger.Error("could not read configuration", "error", err)
		os.Exit(1)
	}
	if globalConfig.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		globals.AppLogger.Info("received signal, initiating shutdown")
		cancel()
	}()

	if err := run(ctx, globalConfig); err != nil && !errors.Is(err, context.Canceled) {
		globals.AppLogger.Error("error running server", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	persister, err := persistence.NewPersister(cfg)
	if err != nil {
		return err
	}
	if persister != nil {
		defer persister.Close()
		if err := ensureDefaultRoom(persister); err != nil {
			return err
		}
	} else {
		globals.AppLogger.Warn("no persistence configured, history will be empty and sends will fail")
	}

	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		return err
	}

	registry := chat.NewRegistry()
	rooms := chat.NewRoomTable()
	typing := chat.NewTypingTracker(time.Duration(cfg.TypingConfig.TimeoutSeconds) * time.Second)
	router := chat.NewRouter(globals.AppLogger, registry, rooms, typing, persister,
		cfg.HistoryConfig.HistorySize, time.Duration(cfg.TypingConfig.SweepSeconds)*time.Second,
		cfg.AdminUser)

	m := mux.NewRouter()
	m.HandleFunc("/ws", ws.NewHandler(router, verifier, persister, globals.AppLogger)).Methods(http.MethodGet)
	m.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	srv := &http.Server{Addr: *addr, Handler: m}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		globals.AppLogger.Info("starting server", "address", *addr)
		var err error
		if *sslCert != "" && *sslKey != "" {
			err = srv.ListenAndServeTLS(*sslCert, *sslKey)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return router.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ensureDefaultRoom makes sure a freshly provisioned portal has at least
// one room to join.
func ensureDefaultRoom(persister persistence.Persister) error {
	rooms, err := persister.GetRooms()
	if err != nil {
		return err
	}
	if len(rooms) > 0 {
		return nil
	}
	room := &types.Room{Name: "general", Tags: make(map[string]string)}
	if err := persister.StoreRoom(room); err != nil {
		return err
	}
	globals.AppLogger.Info("created default room", "room", room.Id)
	return nil
}
