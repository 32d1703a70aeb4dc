package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/backend"
	"github.com/jrsteele09/go-auth-gateway/custody"
	"github.com/jrsteele09/go-auth-gateway/federation"
	"github.com/jrsteele09/go-auth-gateway/internal/config"
	"github.com/jrsteele09/go-auth-gateway/proxy"
	"github.com/jrsteele09/go-auth-gateway/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("config.New %w", err)
	}
	displayAppname(cfg.GetAppName())

	custodyManager := custody.New(cfg.IsProduction())
	forwarder := proxy.NewForwarder(cfg, custodyManager)

	var googleProvider *federation.GoogleProvider
	var bridge *federation.Bridge
	if cfg.GetGoogleClientID() != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		googleProvider, err = federation.NewGoogleProvider(ctx, cfg)
		if err != nil {
			return fmt.Errorf("federation.NewGoogleProvider %w", err)
		}
		bridge = federation.NewBridge(googleProvider, backend.New(cfg))
	} else {
		log.Warn().Msg("GOOGLE_CLIENT_ID not set, Google federation disabled")
	}

	httpServer := &http.Server{
		Addr:    cfg.GetPort(),
		Handler: server.New(cfg, forwarder, custodyManager, googleProvider, bridge),
	}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("Server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
