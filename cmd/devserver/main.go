package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/config"
	"github.com/SARVESHVARADKAR123/dmsync/internal/devserver"
	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.ServiceName == "dmsync" {
		cfg.ServiceName = "dmsync-devserver"
	}

	observability.InitLogger(cfg.ServiceName)
	log := observability.Log

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error("failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	state := devserver.NewState(cfg.MaxUploadBytes, nil)
	issuer := &devserver.TokenIssuer{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}
	seed(state, issuer, log)

	var obsSrv *http.Server
	if cfg.MetricsEnabled {
		obsSrv = &http.Server{Addr: cfg.ObsHTTPAddr, Handler: observability.NewObsRouter()}
		go func() {
			log.Info("HTTP observability server started", zap.String("addr", cfg.ObsHTTPAddr))
			if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP observability server failed", zap.Error(err))
			}
		}()
	}

	h := devserver.NewHandler(state, cfg.PublicURL, cfg.MaxUploadBytes, issuer)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           devserver.NewRouter(h, cfg),
		ReadTimeout:       cfg.UploadTimeout,
		WriteTimeout:      cfg.UploadTimeout,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info("devserver started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("devserver shutdown failed", zap.Error(err))
	}
	if obsSrv != nil {
		if err := obsSrv.Shutdown(ctx); err != nil {
			log.Error("observability shutdown failed", zap.Error(err))
		}
	}

	log.Info("devserver stopped")
}

// seed creates two users with one conversation and logs their tokens.
func seed(state *devserver.State, issuer *devserver.TokenIssuer, log *zap.Logger) {
	users := []domain.User{{ID: "alice", Name: "Alice"}, {ID: "bob", Name: "Bob"}}
	for _, u := range users {
		state.AddUser(u)
	}

	convID, err := state.OpenConversation("alice", "bob")
	if err != nil {
		log.Fatal("seed conversation failed", zap.Error(err))
	}

	for _, u := range users {
		token, err := issuer.Issue(u.ID)
		if err != nil {
			log.Fatal("issue token failed", zap.Error(err))
		}
		log.Info("seeded user",
			zap.String("user_id", u.ID),
			zap.String("conversation_id", convID),
			zap.String("token", token),
		)
	}
}
