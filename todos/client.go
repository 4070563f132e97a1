package todos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// AllPath is appended to the base URI to list every user's items.
const AllPath = "getAll"

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPError is returned when the list API answers with a non-2xx status.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

// Client maps the to-do list operations onto the list API, one request per call.
type Client struct {
	baseURI string
	http    Doer
}

func NewClient(baseURI string, transport Doer) *Client {
	if transport == nil {
		transport = http.DefaultClient
	}
	return &Client{
		baseURI: baseURI,
		http:    transport,
	}
}

func (c *Client) BaseURI() string {
	return c.baseURI
}

// List issues GET {baseURI}.
func (c *Client) List(ctx context.Context) ([]Todo, error) {
	var todos []Todo
	if err := c.do(ctx, http.MethodGet, c.baseURI, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// Get issues GET {baseURI}/{id}.
func (c *Client) Get(ctx context.Context, id int) (*Todo, error) {
	var todo Todo
	if err := c.do(ctx, http.MethodGet, c.itemURI(id), nil, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// Create issues POST {baseURI} and returns the stored item with its assigned ID.
func (c *Client) Create(ctx context.Context, todo Todo) (*Todo, error) {
	var created Todo
	if err := c.do(ctx, http.MethodPost, c.baseURI, &todo, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Delete issues DELETE {baseURI}/{id}.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, c.itemURI(id), nil, nil)
}

// Update issues PUT {baseURI}/{todo.ID} with the whole item as the body.
func (c *Client) Update(ctx context.Context, todo Todo) (*Todo, error) {
	var updated Todo
	if err := c.do(ctx, http.MethodPut, c.itemURI(todo.ID), &todo, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListAll issues GET {baseURI}/getAll.
func (c *Client) ListAll(ctx context.Context) ([]Todo, error) {
	var todos []Todo
	if err := c.do(ctx, http.MethodGet, c.baseURI+"/"+AllPath, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

func (c *Client) itemURI(id int) string {
	return c.baseURI + "/" + strconv.Itoa(id)
}

// do sends one request. Transport errors are returned as they are.
func (c *Client) do(ctx context.Context, method, uri string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, uri, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &HTTPError{
			Method:     method,
			URL:        uri,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       respBody,
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, uri, err)
	}
	return nil
}
