package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gitpusher/pushkit/internal/models"
)

func TestClient_AuthorizationHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret-token")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListProjects(context.Background()); err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
}

func TestClient_UnauthorizedIsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "stale")
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.ListProjects(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_APIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error": "name already taken"}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "tok")
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.CreateProject(context.Background(), CreateProjectInput{Name: "demo"})

	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Message != "name already taken" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestClient_SupportMessagesRoleMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": "1", "is_admin": false, "message": "help", "created_at": "2026-08-01T10:00:00Z"},
			{"id": "2", "is_admin": true, "message": "hello", "created_at": "2026-08-01T10:01:00Z", "read": true}
		]`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "tok")
	if err != nil {
		t.Fatal(err)
	}
	messages, err := c.SupportMessages(context.Background())
	if err != nil {
		t.Fatalf("support messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != models.RoleUser || messages[1].Role != models.RoleOperator {
		t.Errorf("role mapping wrong: %+v", messages)
	}
	if !messages[1].Read {
		t.Error("read flag lost")
	}
}

func TestClient_UploadFilesMultipart(t *testing.T) {
	var names []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, fh := range r.MultipartForm.File["files"] {
			names = append(names, fh.Filename)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "tok")
	if err != nil {
		t.Fatal(err)
	}
	files := []models.StagedFile{
		{Name: "main.go", Content: []byte("package main")},
		{Name: "go.mod", Content: []byte("module demo")},
	}
	if err := c.UploadFiles(context.Background(), "p1", files); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(names) != 2 || names[0] != "main.go" || names[1] != "go.mod" {
		t.Errorf("unexpected uploaded names: %v", names)
	}
}

func TestClient_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("missing accept header")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: {\"t\": 1000, \"freq\": 2}\n\n")
		fmt.Fprint(w, "data: {\"t\": 2000, \"freq\": 3}\n\n")
		fl.Flush()
	}))
	defer srv.Close()

	c, err := New(srv.URL, "tok")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := c.Stream(ctx, "/admin/ai-monitor/stream")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	var got []string
	for ev := range events {
		got = append(got, string(ev.Data))
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d: %v", len(got), got)
	}
	if got[0] != `{"t": 1000, "freq": 2}` {
		t.Errorf("unexpected first event: %q", got[0])
	}
}

func TestClient_StreamUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "stale")
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Stream(context.Background(), "/admin/traffic/stream")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNew_ValidatesBaseURL(t *testing.T) {
	if _, err := New("", "tok"); err == nil {
		t.Error("expected error for empty base url")
	}

	c, err := New("api.example.com", "tok")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.baseURL != "https://api.example.com" {
		t.Errorf("expected https scheme to be assumed, got %q", c.baseURL)
	}
}
