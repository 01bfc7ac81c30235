package idp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webclip/schema"
)

// Config describes the OAuth authorization-code endpoints.
type Config struct {
	AuthURL     string
	TokenURL    string
	ClientID    string
	RedirectURL string
	Scopes      []string
}

// Provider runs the authorization-code flow against an OAuth identity
// provider. Launch opens the system browser and catches the redirect
// on a loopback listener bound to the configured redirect URL.
type Provider struct {
	cfg  Config
	http *http.Client
	log  pslog.Logger

	// openURL launches the system browser.
	openURL func(ctx context.Context, target string) error
}

// New constructs a Provider.
func New(cfg Config, logger pslog.Logger) *Provider {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Provider{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     logger,
		openURL: openSystemBrowser,
	}
}

// AuthURL builds the authorization URL with a fresh random state.
func (p *Provider) AuthURL(ctx context.Context) (string, error) {
	base, err := url.Parse(p.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("auth url: %w", err)
	}
	state, err := randomState()
	if err != nil {
		return "", err
	}
	q := base.Query()
	q.Set("response_type", "code")
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURL)
	q.Set("scope", strings.Join(p.cfg.Scopes, " "))
	q.Set("state", state)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// Launch opens the authorization URL in the system browser and waits
// for the provider to redirect back to the loopback listener. The raw
// callback URL is returned for the relay to pick apart.
func (p *Provider) Launch(ctx context.Context, authURL string) (string, error) {
	redirect, err := url.Parse(p.cfg.RedirectURL)
	if err != nil {
		return "", fmt.Errorf("redirect url: %w", err)
	}
	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", fmt.Errorf("listen on redirect host: %w", err)
	}

	callbackCh := make(chan string, 1)
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != redirect.Path {
				http.NotFound(w, r)
				return
			}
			select {
			case callbackCh <- r.URL.String():
			default:
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body>Signed in. You can close this window.</body></html>")
		}),
	}
	go func() { _ = server.Serve(listener) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := p.openURL(ctx, authURL); err != nil {
		return "", fmt.Errorf("open browser: %w", err)
	}
	p.log.Debug("waiting for identity-provider callback", "host", redirect.Host)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case callback := <-callbackCh:
		return callback, nil
	}
}

// Exchange trades an authorization code for a session.
func (p *Provider) Exchange(ctx context.Context, code string) (schema.Session, error) {
	return p.token(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"client_id":    {p.cfg.ClientID},
		"redirect_uri": {p.cfg.RedirectURL},
	})
}

// Refresh trades a refresh token for a fresh session.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (schema.Session, error) {
	return p.token(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {p.cfg.ClientID},
	})
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (p *Provider) token(ctx context.Context, form url.Values) (schema.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return schema.Session{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := p.http.Do(req)
	if err != nil {
		return schema.Session{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return schema.Session{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.log.Warn("token endpoint rejected request", "status", resp.StatusCode)
		return schema.Session{}, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return schema.Session{}, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return schema.Session{}, errors.New("token response carries no access token")
	}
	expiresIn := token.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return schema.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func openSystemBrowser(ctx context.Context, target string) error {
	return exec.CommandContext(ctx, "xdg-open", target).Start()
}
