package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newRedirectServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final/page", http.StatusFound)
	})
	mux.HandleFunc("/final/page", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landing"))
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain page"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExpandURLFollowsRedirects(t *testing.T) {
	srv := newRedirectServer(t)

	got, err := expandURL(context.Background(), srv.URL+"/short", 5*time.Second, 30)
	if err != nil {
		t.Fatalf("expandURL: %v", err)
	}
	if want := srv.URL + "/final/page"; got != want {
		t.Errorf("final url = %q, want %q", got, want)
	}
}

func TestExpandURLAddsScheme(t *testing.T) {
	srv := newRedirectServer(t)
	bare := strings.TrimPrefix(srv.URL, "http://") + "/short"

	got, err := expandURL(context.Background(), bare, 5*time.Second, 30)
	if err != nil {
		t.Fatalf("expandURL(%q): %v", bare, err)
	}
	if !strings.HasSuffix(got, "/final/page") {
		t.Errorf("final url = %q", got)
	}
}

func TestExpandURLErrors(t *testing.T) {
	srv := newRedirectServer(t)

	// A port nothing listens on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	deadAddr := l.Addr().String()
	l.Close()

	tests := []struct {
		name    string
		url     string
		timeout time.Duration
		limit   int
		want    error
	}{
		{"Not a short link", srv.URL, 5 * time.Second, 30, ErrNotExpanded},
		{"Not a short link with slash", srv.URL + "/", 5 * time.Second, 30, ErrNotExpanded},
		{"Redirect loop", srv.URL + "/loop", 5 * time.Second, 3, ErrTooManyRedirects},
		{"Timeout", srv.URL + "/slow", 100 * time.Millisecond, 30, ErrUpstreamTimeout},
		{"Connection refused", "http://" + deadAddr + "/x", 5 * time.Second, 30, ErrUpstreamConnect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := expandURL(context.Background(), tt.url, tt.timeout, tt.limit)
			if !errors.Is(err, tt.want) {
				t.Errorf("expandURL(%q) error = %v, want %v", tt.url, err, tt.want)
			}
		})
	}
}

func TestExpandURLRelaysUpstreamStatus(t *testing.T) {
	srv := newRedirectServer(t)

	_, err := expandURL(context.Background(), srv.URL+"/missing", 5*time.Second, 30)
	var statusErr *UpstreamStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want UpstreamStatusError", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", statusErr.Code)
	}
}

func TestExpandHandler(t *testing.T) {
	srv := newRedirectServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		field  string
		want   string
	}{
		{"Expanded", `{"url":"` + srv.URL + `/short"}`, http.StatusOK, "final_url", srv.URL + "/final/page"},
		{"Not expanded", `{"url":"` + srv.URL + `"}`, http.StatusBadRequest, "error",
			"Could not expand URL. May not be a short link or request blocked."},
		{"Upstream 404", `{"url":"` + srv.URL + `/missing"}`, http.StatusNotFound, "error", "Request failed with status: 404"},
		{"Missing url", `{}`, http.StatusBadRequest, "error", "No URL provided."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, expandHandler, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body[tt.field] != tt.want {
				t.Errorf("%s = %q, want %q", tt.field, body[tt.field], tt.want)
			}
		})
	}
}

func TestStripScheme(t *testing.T) {
	tests := map[string]string{
		"http://bit.ly/x/":     "bit.ly/x",
		"https://bit.ly/x":     "bit.ly/x",
		"ftp://files.example/": "files.example",
		"ftps://a.b":           "a.b",
		"bit.ly/x":             "bit.ly/x",
		"HTTP://bit.ly":        "HTTP://bit.ly",
	}
	for in, want := range tests {
		if got := stripScheme(in); got != want {
			t.Errorf("stripScheme(%q) = %q, want %q", in, got, want)
		}
	}
}
