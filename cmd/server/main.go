// Command server runs the GeoCrypt API: encrypted file storage behind a
// contextual access policy with a full decision audit trail.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"geocrypt/internal/api"
	"geocrypt/internal/auth"
	"geocrypt/internal/config"
	"geocrypt/internal/mail"
	"geocrypt/internal/models"
	"geocrypt/internal/policy"
	"geocrypt/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("load configuration")
	}

	log := newLogger(cfg.Log)

	st, err := store.Open(cfg.Store.Dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Store.Dir).Msg("open store")
	}
	defer st.Close()

	if err := seed(st, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("seed initial records")
	}

	tokens, err := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("init token manager")
	}

	var sender mail.Sender
	if cfg.SMTP.Host != "" {
		sender = mail.NewSMTPSender(cfg.SMTP)
	} else {
		sender = mail.NewLogSender(log)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           api.New(st, tokens, sender, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("listen", cfg.Server.Listen).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stderr
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// seed creates the bootstrap admin account and a default access policy on
// first start so the server is usable out of the box.
func seed(st *store.Store, cfg *config.Config, log zerolog.Logger) error {
	if _, err := st.GetUser(cfg.Admin.Username); errors.Is(err, store.ErrNotFound) {
		hash, err := auth.HashPassword(cfg.Admin.Password)
		if err != nil {
			return err
		}
		err = st.CreateUser(models.User{
			Username:     cfg.Admin.Username,
			Email:        cfg.Admin.Email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			CreatedAt:    time.Now().UTC(),
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		log.Info().Str("username", cfg.Admin.Username).Msg("admin user created")
	} else if err != nil {
		return err
	}

	if _, found, err := st.GetPolicyConfig(); err != nil {
		return err
	} else if !found {
		err := st.PutPolicyConfig(policy.Config{
			Latitude:       10.8505,
			Longitude:      76.2711,
			Radius:         500,
			AllowedNetwork: "OfficeWiFi",
			StartTime:      "09:00",
			EndTime:        "17:00",
		})
		if err != nil {
			return err
		}
		log.Info().Msg("default policy config created")
	}
	return nil
}
