package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-todo-spa/internal/config"
	"github.com/jrsteele09/go-todo-spa/internal/metrics"
	"github.com/jrsteele09/go-todo-spa/oidcclient"
	"github.com/jrsteele09/go-todo-spa/server/authflowrepo"
	"github.com/jrsteele09/go-todo-spa/server/loginsession"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Authenticator is the identity provider side of sign-in, satisfied by *oidcclient.Client.
type Authenticator interface {
	AuthCodeURL(state, nonce, codeVerifier string) string
	Exchange(ctx context.Context, code, codeVerifier string) (*oidcclient.Result, error)
	TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource
	EndSessionURL(idTokenHint, postLogoutRedirectURI string) string
}

var _ Authenticator = (*oidcclient.Client)(nil)

type Server struct {
	env           string // Environment (e.g., "DEV", "PROD")
	router        chi.Router
	routes        []string
	config        config.Config
	authenticator Authenticator
	loginSessions loginsession.Repo
	authState     authflowrepo.Repo
	metrics       *metrics.Metrics
	registry      *prometheus.Registry
	apiTransport  http.RoundTripper
	now           func() time.Time
}

// Option adjusts a Server at construction.
type Option func(*Server)

// WithAPITransport sets the transport used for calls to the to-do list API.
func WithAPITransport(transport http.RoundTripper) Option {
	return func(s *Server) {
		s.apiTransport = transport
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(config config.Config, authenticator Authenticator, loginSessionRepo loginsession.Repo, authStateRepo authflowrepo.Repo, opts ...Option) (*Server, error) {
	if authenticator == nil {
		return nil, errors.New("[Server New] authenticator is required")
	}
	if loginSessionRepo == nil || authStateRepo == nil {
		return nil, errors.New("[Server New] session repositories are required")
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		env:           config.GetEnv(),
		router:        chi.NewRouter(),
		config:        config,
		authenticator: authenticator,
		loginSessions: loginSessionRepo,
		authState:     authStateRepo,
		metrics:       metrics.New(registry),
		registry:      registry,
		apiTransport:  http.DefaultTransport,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(method, pattern string, handler http.Handler) {
	s.routes = append(s.routes, method+" "+pattern)
	s.router.Method(method, pattern, handler)
}

func (s *Server) RegisterRouteFunc(method, pattern string, handler http.HandlerFunc) {
	s.RegisterRouteHandler(method, pattern, handler)
}

// Routes lists the registered "METHOD /pattern" entries.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
