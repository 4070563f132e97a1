package todosfake

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-todo-spa/todos"
)

// RecordedRequest is what the fake saw for one call.
type RecordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

// FakeTodoAPI is an in-memory to-do list API serving the list wire contract under a path prefix.
type FakeTodoAPI struct {
	prefix   string
	todos    map[int]todos.Todo
	nextID   int
	requests []RecordedRequest
	failWith int
	lock     sync.RWMutex
	router   chi.Router
}

func New(prefix string) *FakeTodoAPI {
	f := &FakeTodoAPI{
		prefix: prefix,
		todos:  make(map[int]todos.Todo),
		nextID: 1,
	}

	r := chi.NewRouter()
	r.Use(f.record)
	r.Route(prefix, func(r chi.Router) {
		r.Get("/", f.list)
		r.Post("/", f.create)
		r.Get("/"+todos.AllPath, f.list)
		r.Get("/{id}", f.get)
		r.Put("/{id}", f.update)
		r.Delete("/{id}", f.delete)
	})
	f.router = r
	return f
}

func (f *FakeTodoAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.router.ServeHTTP(w, r)
}

// Seed stores items as given, keeping their IDs.
func (f *FakeTodoAPI) Seed(items ...todos.Todo) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, item := range items {
		f.todos[item.ID] = item
		if item.ID >= f.nextID {
			f.nextID = item.ID + 1
		}
	}
}

// FailWith makes every following request answer with status. Zero turns it off.
func (f *FakeTodoAPI) FailWith(status int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failWith = status
}

func (f *FakeTodoAPI) Requests() []RecordedRequest {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]RecordedRequest(nil), f.requests...)
}

func (f *FakeTodoAPI) LastRequest() RecordedRequest {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if len(f.requests) == 0 {
		return RecordedRequest{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *FakeTodoAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		f.lock.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Body:   string(body),
			Auth:   r.Header.Get("Authorization"),
		})
		failWith := f.failWith
		f.lock.Unlock()

		if failWith != 0 {
			http.Error(w, http.StatusText(failWith), failWith)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeTodoAPI) list(w http.ResponseWriter, r *http.Request) {
	f.lock.RLock()
	list := make([]todos.Todo, 0, len(f.todos))
	for _, v := range f.todos {
		list = append(list, v)
	}
	f.lock.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	writeJSON(w, http.StatusOK, list)
}

func (f *FakeTodoAPI) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f.lock.RLock()
	todo, exists := f.todos[id]
	f.lock.RUnlock()
	if !exists {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (f *FakeTodoAPI) create(w http.ResponseWriter, r *http.Request) {
	var todo todos.Todo
	if err := json.NewDecoder(r.Body).Decode(&todo); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	f.lock.Lock()
	todo.ID = f.nextID
	f.nextID++
	f.todos[todo.ID] = todo
	f.lock.Unlock()

	writeJSON(w, http.StatusCreated, todo)
}

func (f *FakeTodoAPI) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var todo todos.Todo
	if err := json.NewDecoder(r.Body).Decode(&todo); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if todo.ID != id {
		http.Error(w, "id mismatch", http.StatusBadRequest)
		return
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if _, exists := f.todos[id]; !exists {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	f.todos[id] = todo
	writeJSON(w, http.StatusOK, todo)
}

func (f *FakeTodoAPI) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if _, exists := f.todos[id]; !exists {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	delete(f.todos, id)
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
