package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoadTimeoutConfig(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "42")
	t.Setenv("WRITE_TIMEOUT", "-1")
	t.Setenv("IDLE_TIMEOUT", "soon")

	cfg := LoadTimeoutConfig(DefaultTimeoutConfig())
	if cfg.Read != 42*time.Second {
		t.Errorf("Expected read timeout 42s, got %v", cfg.Read)
	}
	if cfg.Write != 30*time.Second {
		t.Errorf("Expected default write timeout, got %v", cfg.Write)
	}
	if cfg.Idle != 60*time.Second {
		t.Errorf("Expected default idle timeout, got %v", cfg.Idle)
	}
}

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{BadRequest(errors.New("bad")), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", NotFound(errors.New("gone"))), http.StatusNotFound},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.code {
			t.Errorf("Expected %d for %v, got %d", c.code, c.err, got)
		}
	}
}

func TestHandleSessionCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://portal.example:8080/", nil)
	rec := httptest.NewRecorder()
	id := HandleSessionCookie(rec, req)
	if id == "" {
		t.Fatal("Expected a session id")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != id {
		t.Fatalf("Expected sid cookie with %s, got %v", id, cookies)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	rec = httptest.NewRecorder()
	if got := HandleSessionCookie(rec, req); got != id {
		t.Errorf("Expected existing id %s, got %s", id, got)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("Expected no new cookie for a known session")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "12345"})
	rec = httptest.NewRecorder()
	if got := HandleSessionCookie(rec, req); got == "12345" {
		t.Error("Expected a fresh id for a malformed cookie")
	}
}

func TestJsonHandlerMapsErrors(t *testing.T) {
	h := JsonHandler(func(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
		return NotFound(errors.New("no such category"))
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
