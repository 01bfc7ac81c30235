package idp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestAuthURLCarriesCodeFlowParameters(t *testing.T) {
	p := New(Config{
		AuthURL:     "https://id.example/oauth/authorize",
		ClientID:    "webclip-desktop",
		RedirectURL: "http://127.0.0.1:0/callback",
		Scopes:      []string{"notes:write", "offline_access"},
	}, nil)

	raw, err := p.AuthURL(context.Background())
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := parsed.Query()
	if q.Get("response_type") != "code" {
		t.Fatalf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("client_id") != "webclip-desktop" {
		t.Fatalf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("scope") != "notes:write offline_access" {
		t.Fatalf("scope = %q", q.Get("scope"))
	}
	if q.Get("state") == "" {
		t.Fatalf("missing state")
	}
	again, _ := p.AuthURL(context.Background())
	if again == raw {
		t.Fatalf("state not randomized")
	}
}

func TestExchangeParsesTokenResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Fatalf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "abc" {
			t.Fatalf("code = %q", r.PostForm.Get("code"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":60}`))
	}))
	defer srv.Close()

	p := New(Config{TokenURL: srv.URL, ClientID: "c"}, nil)
	session, err := p.Exchange(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if session.AccessToken != "at" || session.RefreshToken != "rt" {
		t.Fatalf("session = %+v", session)
	}
	if time.Until(session.ExpiresAt) > time.Minute+time.Second {
		t.Fatalf("expiry too far out: %v", session.ExpiresAt)
	}
}

func TestRefreshRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := New(Config{TokenURL: srv.URL, ClientID: "c"}, nil)
	if _, err := p.Refresh(context.Background(), "rt"); err == nil {
		t.Fatalf("expected error on 400")
	}
}

func TestLaunchCatchesLoopbackCallback(t *testing.T) {
	p := New(Config{RedirectURL: "http://127.0.0.1:0/callback"}, nil)

	// Pick a free port for the redirect target, then point the provider
	// at it.
	probe := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(probe.URL, "http://")
	probe.Close()
	p.cfg.RedirectURL = "http://" + host + "/callback"

	p.openURL = func(ctx context.Context, _ string) error {
		go func() {
			for i := 0; i < 50; i++ {
				resp, err := http.Get("http://" + host + "/callback?code=xyz&state=s")
				if err == nil {
					resp.Body.Close()
					return
				}
				time.Sleep(10 * time.Millisecond)
			}
		}()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	callback, err := p.Launch(ctx, "https://id.example/authorize")
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	parsed, err := url.Parse(callback)
	if err != nil {
		t.Fatalf("parse callback: %v", err)
	}
	if parsed.Query().Get("code") != "xyz" {
		t.Fatalf("callback = %q", callback)
	}
}
