package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-todo-spa/server/loginsession"
	"github.com/jrsteele09/go-todo-spa/todos"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const maxTodoBodySize = 1 << 20

// todoCall is one to-do list API call made on behalf of the signed-in session.
type todoCall func(ctx context.Context, client *todos.Client) (any, error)

func (s *Server) ListTodosHandler() http.HandlerFunc {
	return s.todoHandler(http.StatusOK, func(ctx context.Context, client *todos.Client) (any, error) {
		return client.List(ctx)
	})
}

func (s *Server) ListAllTodosHandler() http.HandlerFunc {
	return s.todoHandler(http.StatusOK, func(ctx context.Context, client *todos.Client) (any, error) {
		return client.ListAll(ctx)
	})
}

func (s *Server) GetTodoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := todoID(w, r)
		if !ok {
			return
		}
		s.todoHandler(http.StatusOK, func(ctx context.Context, client *todos.Client) (any, error) {
			return client.Get(ctx, id)
		})(w, r)
	}
}

func (s *Server) CreateTodoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		todo, ok := decodeTodo(w, r)
		if !ok {
			return
		}
		// The list API assigns IDs
		todo.ID = 0
		s.todoHandler(http.StatusCreated, func(ctx context.Context, client *todos.Client) (any, error) {
			return client.Create(ctx, todo)
		})(w, r)
	}
}

func (s *Server) UpdateTodoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := todoID(w, r)
		if !ok {
			return
		}
		todo, ok := decodeTodo(w, r)
		if !ok {
			return
		}
		todo.ID = id
		s.todoHandler(http.StatusOK, func(ctx context.Context, client *todos.Client) (any, error) {
			return client.Update(ctx, todo)
		})(w, r)
	}
}

func (s *Server) DeleteTodoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := todoID(w, r)
		if !ok {
			return
		}
		s.todoHandler(http.StatusNoContent, func(ctx context.Context, client *todos.Client) (any, error) {
			return nil, client.Delete(ctx, id)
		})(w, r)
	}
}

// todoHandler runs call with a client bound to the session's tokens and writes its result.
func (s *Server) todoHandler(status int, call todoCall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Sign-in required")
			return
		}

		client, tokens := s.todoClientFor(r.Context(), session)
		result, err := call(r.Context(), client)
		var retrieveErr *oauth2.RetrieveError
		if !errors.As(err, &retrieveErr) {
			// A failed refresh is not retried here
			s.persistRefreshedToken(r.Context(), session, tokens)
		}
		if err != nil {
			s.writeUpstreamError(w, r, err)
			return
		}

		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, result)
	}
}

// todoClientFor builds a to-do list client that sends the session's access token
// and refreshes it when it expires.
func (s *Server) todoClientFor(ctx context.Context, session loginsession.Session) (*todos.Client, oauth2.TokenSource) {
	tokens := s.authenticator.TokenSource(ctx, session.Token())
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: tokens,
			Base:   s.metrics.InstrumentRoundTripper(s.apiTransport),
		},
	}
	return todos.NewClient(s.config.GetTodoListAPIURI(), httpClient), tokens
}

func (s *Server) persistRefreshedToken(ctx context.Context, session loginsession.Session, tokens oauth2.TokenSource) {
	token, err := tokens.Token()
	if err != nil || token.AccessToken == session.AccessToken {
		return
	}

	session.AccessToken = token.AccessToken
	session.TokenType = token.TokenType
	session.TokenExpiry = token.Expiry
	if token.RefreshToken != "" {
		session.RefreshToken = token.RefreshToken
	}
	if err := s.loginSessions.Upsert(ctx, session); err != nil {
		log.Err(err).Msg("Failed to store refreshed token")
	}
}

// writeUpstreamError keeps the list API's status; anything else is a bad gateway.
func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	logError(r.Method, r.URL.Path, err.Error())

	var httpErr *todos.HTTPError
	if errors.As(err, &httpErr) {
		writeError(w, httpErr.StatusCode, "upstream_error", httpErr.Status)
		return
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Session tokens could not be refreshed, please sign in again")
		return
	}

	writeError(w, http.StatusBadGateway, "upstream_error", "To-do list API unavailable")
}

func todoID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid to-do id")
		return 0, false
	}
	return id, true
}

func decodeTodo(w http.ResponseWriter, r *http.Request) (todos.Todo, bool) {
	var todo todos.Todo
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTodoBodySize)).Decode(&todo); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid to-do body")
		return todos.Todo{}, false
	}
	return todo, true
}
