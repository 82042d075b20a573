// Package authalligatortest provides fake AuthAlligator services for tests.
package authalligatortest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
)

// Request is a GraphQL request received by a fake server.
type Request struct {
	Operation string
	Query     string
	Variables map[string]any
	Token     string
}

// HandlerFunc produces the status code and JSON body for a request.
type HandlerFunc func(req Request) (int, any)

// Server is an httptest server speaking the AuthAlligator GraphQL endpoint.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
}

var operationName = regexp.MustCompile(`^\s*(?:query|mutation)\s+(\w+)`)

// NewServer starts a server that answers POST /graphql with handler. The
// server is closed when the test ends.
func NewServer(t testing.TB, handler HandlerFunc) *Server {
	t.Helper()

	s := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /graphql", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var payload struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		token, _, _ := r.BasicAuth()
		req := Request{
			Query:     payload.Query,
			Variables: payload.Variables,
			Token:     token,
		}
		if m := operationName.FindStringSubmatch(payload.Query); m != nil {
			req.Operation = m[1]
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		status, resp := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		switch v := resp.(type) {
		case nil:
		case string:
			_, _ = io.WriteString(w, v)
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(v)
		}
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Respond returns a handler that always answers 200 with data as the
// "data" member.
func Respond(data map[string]any) HandlerFunc {
	return func(Request) (int, any) {
		return http.StatusOK, map[string]any{"data": data}
	}
}

// AccountErrorData builds an AccountError union member.
func AccountErrorData(code, message string, retryIn *int) map[string]any {
	return map[string]any{
		"__typename": "AccountError",
		"code":       code,
		"message":    message,
		"retryIn":    retryIn,
	}
}
