package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Sign-in & Sign-out
	RouteLogin    = "/login"
	RouteLogout   = "/logout"
	RouteCallback = "/callback"

	// API Routes
	RouteAPIMe       = "/api/me"
	RouteAPITodos    = "/api/todos"
	RouteAPITodo     = "/api/todos/{id}"
	RouteAPITodosAll = "/api/todos/getAll"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
