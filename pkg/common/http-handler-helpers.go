package common

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// StatusError carries the http status a handler error should be answered with.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func BadRequest(err error) error {
	return &StatusError{Code: http.StatusBadRequest, Err: err}
}

func NotFound(err error) error {
	return &StatusError{Code: http.StatusNotFound, Err: err}
}

func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return http.StatusInternalServerError
}

// JsonHandler answers preflight requests, resolves the session cookie and
// turns handler errors into plain text responses. Handlers must not write
// the response before returning an error.
func JsonHandler(fn func(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			RespondToOptions(w, r)
			return
		}
		sessionId := HandleSessionCookie(w, r)

		err := fn(w, r, sessionId, json.NewEncoder(w))
		if err != nil {
			code := StatusCode(err)
			log.Printf("Error handling request %s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, err.Error(), code)
		}
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Age", "0")
	w.WriteHeader(http.StatusAccepted)
}
