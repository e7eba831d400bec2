package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bristolhackspace/induction/definitions"
	api "github.com/bristolhackspace/induction/internal/api/http"
	"github.com/bristolhackspace/induction/internal/auth"
	authmw "github.com/bristolhackspace/induction/internal/auth/middleware"
	"github.com/bristolhackspace/induction/internal/config"
	"github.com/bristolhackspace/induction/internal/forum"
	"github.com/bristolhackspace/induction/internal/induction"
	"github.com/bristolhackspace/induction/internal/questionnaire"
	"github.com/bristolhackspace/induction/internal/storage"
)

func main() {
	settings := flag.String("settings", os.Getenv(config.SettingsEnv), "path to the YAML settings file")
	flag.Parse()

	cfg, err := config.Load(*settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "induction: %v\n", err)
		os.Exit(2)
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("induction stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// --- Definitions ---
	var store storage.Store
	if cfg.DefinitionsDir == "" {
		store = storage.NewFSStore(definitions.Questionnaires())
	} else {
		ds, err := storage.NewDirStore(cfg.DefinitionsDir)
		if err != nil {
			return fmt.Errorf("definitions: %w", err)
		}
		store = ds
	}
	loader, err := questionnaire.NewLoader(store, definitions.Schema)
	if err != nil {
		return err
	}
	var src questionnaire.Source = loader
	if cfg.CacheDefinitions {
		src = questionnaire.NewCachingLoader(loader)
	}

	// --- Forum ---
	fc, err := forum.New(forum.Config{
		BaseURL:     cfg.Forum.BaseURL,
		APIKey:      cfg.Forum.APIKey,
		APIUsername: cfg.Forum.APIUsername,
		Timeout:     cfg.Forum.Timeout,
	})
	if err != nil {
		return err
	}

	// --- Auth ---
	secret := cfg.Session.Secret
	if secret == "" {
		secret = cfg.SSO.Secret
	}
	key, err := authmw.DeriveKey([]byte(secret), "induction session")
	if err != nil {
		return err
	}
	sessions := authmw.NewAuthService(key, cfg.Session.TTL, cfg.SecureCookies())
	sso, err := auth.NewSSO(auth.SSOConfig{
		ForumURL:    cfg.Forum.BaseURL,
		CallbackURL: cfg.CallbackURL(),
		Secret:      cfg.SSO.Secret,
	}, sessions, log)
	if err != nil {
		return err
	}

	// --- Router ---
	handler, err := api.NewRouter(api.Deps{
		Service:            induction.NewService(src, fc, log),
		Sessions:           sessions,
		SSO:                sso,
		Log:                log,
		CORSOrigins:        cfg.CORSOrigins,
		PrecheckMembership: cfg.PrecheckMembership,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	log.Info("listening", "addr", cfg.HTTPAddr, "forum", cfg.Forum.BaseURL, "bundled_definitions", cfg.DefinitionsDir == "")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) || err == nil {
			return nil
		}
		return err
	}
}
