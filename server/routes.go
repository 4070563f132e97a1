package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// guardedRoute is a route that only opens for sessions holding Role.
type guardedRoute struct {
	Method  string
	Pattern string
	Role    string
	Handler http.HandlerFunc
}

func (s *Server) guardedRoutes() []guardedRoute {
	userRole := s.config.GetUserRole()
	adminRole := s.config.GetAdminRole()

	return []guardedRoute{
		{Method: http.MethodGet, Pattern: RouteAPITodos, Role: userRole, Handler: s.ListTodosHandler()},
		{Method: http.MethodPost, Pattern: RouteAPITodos, Role: userRole, Handler: s.CreateTodoHandler()},
		{Method: http.MethodGet, Pattern: RouteAPITodosAll, Role: adminRole, Handler: s.ListAllTodosHandler()},
		{Method: http.MethodGet, Pattern: RouteAPITodo, Role: userRole, Handler: s.GetTodoHandler()},
		{Method: http.MethodPut, Pattern: RouteAPITodo, Role: userRole, Handler: s.UpdateTodoHandler()},
		{Method: http.MethodDelete, Pattern: RouteAPITodo, Role: userRole, Handler: s.DeleteTodoHandler()},
	}
}

func (s *Server) initRoutes() {
	// SIGN-IN
	s.RegisterRouteFunc(http.MethodGet, RouteLogin, ChainMiddleware(s.LoginHandler(), s.BaseMiddleware()...))
	s.RegisterRouteFunc(http.MethodGet, RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.BaseMiddleware()...))
	s.RegisterRouteFunc(http.MethodPost, RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.BaseMiddleware()...)) // For form_post response mode
	s.RegisterRouteFunc(http.MethodGet, RouteLogout, ChainMiddleware(s.LogoutHandler(), s.BaseMiddleware()...))

	// Signed-in routes without a role requirement
	s.RegisterRouteFunc(http.MethodGet, RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireSession())...))

	// Role guarded to-do routes
	for _, route := range s.guardedRoutes() {
		s.RegisterRouteFunc(route.Method, route.Pattern,
			ChainMiddleware(route.Handler, s.APIMiddleware(s.RequireSession(), s.RequireRole(route.Role))...))
	}

	// CORS preflight for the API
	for _, pattern := range []string{RouteAPIMe, RouteAPITodos, RouteAPITodosAll, RouteAPITodo} {
		s.RegisterRouteFunc(http.MethodOptions, pattern, ChainMiddleware(preflightHandler, s.APIMiddleware()...))
	}

	s.RegisterRouteFunc(http.MethodGet, RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler(http.MethodGet, RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// preflightHandler answers OPTIONS requests that carry no Origin header.
func preflightHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func logError(method, path, error string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	errorString := Red + error + ResetColor
	log.Error().Msgf("[%-19s] %s %s", displayMethod, path, errorString)
}
