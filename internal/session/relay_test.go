package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/webclip/schema"
)

type memStorage struct {
	session *schema.Session
	sets    int
}

func (m *memStorage) Session() (*schema.Session, error) {
	if m.session == nil {
		return nil, nil
	}
	copied := *m.session
	return &copied, nil
}

func (m *memStorage) SetSession(session *schema.Session) error {
	m.sets++
	if session == nil {
		m.session = nil
		return nil
	}
	copied := *session
	m.session = &copied
	return nil
}

type fakeProvider struct {
	authURL    string
	callback   string
	launchErr  error
	exchanged  []string
	refreshed  []string
	refreshErr error
	session    schema.Session
}

func (p *fakeProvider) AuthURL(context.Context) (string, error) {
	if p.authURL == "" {
		return "https://idp.example/authorize?redirect=no", nil
	}
	return p.authURL, nil
}

func (p *fakeProvider) Launch(_ context.Context, _ string) (string, error) {
	return p.callback, p.launchErr
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (schema.Session, error) {
	p.exchanged = append(p.exchanged, code)
	return p.session, nil
}

func (p *fakeProvider) Refresh(_ context.Context, token string) (schema.Session, error) {
	p.refreshed = append(p.refreshed, token)
	if p.refreshErr != nil {
		return schema.Session{}, p.refreshErr
	}
	return p.session, nil
}

func TestGetValidWellBeforeExpiry(t *testing.T) {
	store := &memStorage{session: &schema.Session{
		AccessToken:  "live",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(time.Hour),
	}}
	provider := &fakeProvider{}
	relay := New(provider, store, nil)

	got, err := relay.GetValid(context.Background())
	if err != nil {
		t.Fatalf("get valid: %v", err)
	}
	if got == nil || got.AccessToken != "live" {
		t.Fatalf("expected stored session unchanged, got %+v", got)
	}
	if len(provider.refreshed) != 0 {
		t.Fatalf("unexpected refresh: %v", provider.refreshed)
	}
}

func TestGetValidRefreshesWithinMargin(t *testing.T) {
	store := &memStorage{session: &schema.Session{
		AccessToken:  "old",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(2 * time.Minute),
	}}
	provider := &fakeProvider{session: schema.Session{
		AccessToken: "new",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	relay := New(provider, store, nil)

	got, err := relay.GetValid(context.Background())
	if err != nil {
		t.Fatalf("get valid: %v", err)
	}
	if got == nil || got.AccessToken != "new" {
		t.Fatalf("expected refreshed session, got %+v", got)
	}
	if len(provider.refreshed) != 1 || provider.refreshed[0] != "rt-1" {
		t.Fatalf("expected exactly one refresh with rt-1, got %v", provider.refreshed)
	}
	if got.RefreshToken != "rt-1" {
		t.Fatalf("refresh token not carried over: %+v", got)
	}
	if store.session == nil || store.session.AccessToken != "new" {
		t.Fatalf("refreshed session not persisted: %+v", store.session)
	}
}

func TestGetValidClearsOnRefreshFailure(t *testing.T) {
	store := &memStorage{session: &schema.Session{
		AccessToken:  "old",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}}
	provider := &fakeProvider{refreshErr: errors.New("idp down")}
	relay := New(provider, store, nil)

	got, err := relay.GetValid(context.Background())
	if err != nil {
		t.Fatalf("get valid: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on refresh failure, got %+v", got)
	}
	if store.session != nil {
		t.Fatalf("stale session left in storage: %+v", store.session)
	}
}

func TestGetValidNoSession(t *testing.T) {
	relay := New(&fakeProvider{}, &memStorage{}, nil)
	got, err := relay.GetValid(context.Background())
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", got, err)
	}
}

func TestLoginWithAuthorizationCode(t *testing.T) {
	store := &memStorage{}
	provider := &fakeProvider{
		callback: "https://app.example/callback?code=abc123&state=xyz",
		session: schema.Session{
			AccessToken:  "at",
			RefreshToken: "rt",
			ExpiresAt:    time.Now().Add(time.Hour),
		},
	}
	relay := New(provider, store, nil)

	session, err := relay.Login(context.Background())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(provider.exchanged) != 1 || provider.exchanged[0] != "abc123" {
		t.Fatalf("expected code exchange, got %v", provider.exchanged)
	}
	if session.AccessToken != "at" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if store.session == nil || store.session.AccessToken != "at" {
		t.Fatalf("session not persisted")
	}
}

func TestLoginImplicitFlowFallback(t *testing.T) {
	store := &memStorage{}
	provider := &fakeProvider{
		callback: "https://app.example/callback#access_token=tok&refresh_token=ref&expires_in=7200",
	}
	relay := New(provider, store, nil)
	relay.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }

	session, err := relay.Login(context.Background())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(provider.exchanged) != 0 {
		t.Fatalf("implicit flow must not exchange a code")
	}
	if session.AccessToken != "tok" || session.RefreshToken != "ref" {
		t.Fatalf("unexpected session: %+v", session)
	}
	want := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	if !session.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at: got %v want %v", session.ExpiresAt, want)
	}
}

func TestLoginRejectsEmptyCallback(t *testing.T) {
	relay := New(&fakeProvider{callback: "https://app.example/callback"}, &memStorage{}, nil)
	_, err := relay.Login(context.Background())
	if !errors.Is(err, schema.ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
}

func TestLogoutClearsSlot(t *testing.T) {
	store := &memStorage{session: &schema.Session{AccessToken: "x"}}
	relay := New(&fakeProvider{}, store, nil)
	if err := relay.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if store.session != nil {
		t.Fatalf("session survived logout")
	}
}

func TestAcceptSyncAcks(t *testing.T) {
	store := &memStorage{}
	relay := New(&fakeProvider{}, store, nil)
	resp, err := relay.AcceptSync(schema.Session{AccessToken: "pushed", ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("accept sync: %v", err)
	}
	if !resp.Acked {
		t.Fatalf("expected ack")
	}
	if store.session == nil || store.session.AccessToken != "pushed" {
		t.Fatalf("pushed session not stored")
	}
	if _, err := relay.AcceptSync(schema.Session{}); !errors.Is(err, schema.ErrInvalidRequest) {
		t.Fatalf("empty push accepted: %v", err)
	}
}
