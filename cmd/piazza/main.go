package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/piazza-xyz/piazza-go"
	"github.com/piazza-xyz/piazza-go/auth"
	"github.com/piazza-xyz/piazza-go/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running client: %s\n", err)
	}
	log.Printf("Client stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())
	configureLogging(c)

	client, err := piazza.Boot(piazza.Config{
		APIKey:        c.GetAPIKey(),
		ProviderAppID: c.GetProviderAppID(),
		DevMode:       c.GetDevMode(),
		BackendURL:    c.GetBackendURL(),
		StoragePath:   c.GetStoragePath(),
	})
	if err != nil {
		return fmt.Errorf("piazza.Boot: %w", err)
	}
	defer client.Close()

	client.Bus().On(auth.EventProviderReady, func(any) {
		zlog.Info().Msg("provider driver attached and ready")
	})
	client.Auth.On(auth.EventAuth, func(payload any) {
		if result, ok := payload.(*auth.AuthResult); ok && result.Account != nil {
			zlog.Info().Str("did", result.Account.DID).Msg("authenticated")
		}
	})
	client.Auth.On(auth.EventAuthError, func(payload any) {
		zlog.Warn().Any("error", payload).Msg("authentication failed")
	})

	zlog.Info().
		Str("env", c.GetEnv()).
		Bool("devMode", c.GetDevMode()).
		Msg("client booted, waiting for a provider driver")
	waitForStopSignal()
	return nil
}

func configureLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
