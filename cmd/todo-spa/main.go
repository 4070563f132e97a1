package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-todo-spa/internal/config"
	"github.com/jrsteele09/go-todo-spa/oidcclient"
	"github.com/jrsteele09/go-todo-spa/server"
	"github.com/jrsteele09/go-todo-spa/server/authflowrepo"
	"github.com/jrsteele09/go-todo-spa/server/loginsession"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	env := config.EnvVars{}
	setupLogging(env)

	c, err := config.Load(env.GetAuthConfigPath())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	authenticator, err := oidcclient.New(ctx, oidcclient.Config{
		Issuer:       c.GetAuthority(),
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		RedirectURL:  redirectURL(c),
		Scopes:       c.GetTodoListAPIScopes(),
	})
	cancel()
	if err != nil {
		return err
	}

	sessions, closeSessions, err := loginSessionRepo(c)
	if err != nil {
		return err
	}
	defer closeSessions()

	handler, err := server.New(c, authenticator, sessions, authflowrepo.NewInMemoryRepo())
	if err != nil {
		return err
	}

	displayAppname(c.GetAppName())
	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(env config.EnvVars) {
	level, err := zerolog.ParseLevel(env.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if env.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// redirectURL prefers the configured redirect URI and falls back to BASE_URL.
func redirectURL(c config.Config) string {
	if uri := c.GetRedirectURI(); uri != "" {
		return uri
	}
	return strings.TrimSuffix(c.GetBaseURL(), "/") + server.RouteCallback
}

// loginSessionRepo shares sessions through Redis when REDIS_URL is set.
func loginSessionRepo(c config.Config) (loginsession.Repo, func(), error) {
	redisURL := c.GetRedisURL()
	if redisURL == "" {
		return loginsession.NewInMemoryRepo(), func() {}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Msg("Login sessions stored in Redis")

	return loginsession.NewRedisRepo(client), func() { _ = client.Close() }, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
