package session

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webclip/schema"
)

// RefreshMargin is how close to expiry a session may get before
// GetValid refreshes it instead of returning it.
const RefreshMargin = 5 * time.Minute

// Provider is the identity-provider port: it hands out the
// authorization URL in no-redirect mode, runs the interactive system
// auth flow, and exchanges or refreshes tokens.
type Provider interface {
	AuthURL(ctx context.Context) (string, error)
	Launch(ctx context.Context, authURL string) (callbackURL string, err error)
	Exchange(ctx context.Context, code string) (schema.Session, error)
	Refresh(ctx context.Context, refreshToken string) (schema.Session, error)
}

// Storage is the persisted session slot the relay reads and writes.
type Storage interface {
	Session() (*schema.Session, error)
	SetSession(session *schema.Session) error
}

// Relay maintains the one process-wide session slot.
type Relay struct {
	provider Provider
	store    Storage
	log      pslog.Logger
	now      func() time.Time
}

// New constructs a Relay.
func New(provider Provider, store Storage, logger pslog.Logger) *Relay {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Relay{
		provider: provider,
		store:    store,
		log:      logger,
		now:      time.Now,
	}
}

// Login runs the interactive flow: fetch the authorization URL, open
// the system auth flow, extract the authorization code (or, as
// fallback, implicit-flow tokens) from the callback URL, exchange it,
// and persist the resulting session.
func (r *Relay) Login(ctx context.Context) (schema.Session, error) {
	authURL, err := r.provider.AuthURL(ctx)
	if err != nil {
		r.log.Warn("login auth url failed", "err", err)
		return schema.Session{}, fmt.Errorf("%w: %v", schema.ErrLoginFailed, err)
	}
	callback, err := r.provider.Launch(ctx, authURL)
	if err != nil {
		r.log.Warn("login flow failed", "err", err)
		return schema.Session{}, fmt.Errorf("%w: %v", schema.ErrLoginFailed, err)
	}
	session, err := r.sessionFromCallback(ctx, callback)
	if err != nil {
		r.log.Warn("login callback rejected", "err", err)
		return schema.Session{}, err
	}
	if err := r.store.SetSession(&session); err != nil {
		return schema.Session{}, err
	}
	r.log.Info("login ok", "expires_at", session.ExpiresAt)
	return session, nil
}

func (r *Relay) sessionFromCallback(ctx context.Context, callback string) (schema.Session, error) {
	parsed, err := url.Parse(callback)
	if err != nil {
		return schema.Session{}, fmt.Errorf("%w: bad callback url", schema.ErrLoginFailed)
	}
	if code := parsed.Query().Get("code"); code != "" {
		return r.provider.Exchange(ctx, code)
	}
	// Implicit-flow fallback: tokens arrive in the URL fragment.
	fragment, err := url.ParseQuery(parsed.Fragment)
	if err != nil {
		return schema.Session{}, fmt.Errorf("%w: bad callback fragment", schema.ErrLoginFailed)
	}
	access := fragment.Get("access_token")
	if access == "" {
		return schema.Session{}, fmt.Errorf("%w: callback carries neither code nor token", schema.ErrLoginFailed)
	}
	expiresIn, _ := strconv.Atoi(fragment.Get("expires_in"))
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return schema.Session{
		AccessToken:  access,
		RefreshToken: fragment.Get("refresh_token"),
		ExpiresAt:    r.now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// Logout destroys the stored session.
func (r *Relay) Logout() error {
	if err := r.store.SetSession(nil); err != nil {
		return err
	}
	r.log.Info("logout ok")
	return nil
}

// GetValid returns the stored session, refreshing it first when it is
// expired or within RefreshMargin of expiry. On refresh failure the
// slot is cleared and nil is returned; a stale session is never handed
// out.
func (r *Relay) GetValid(ctx context.Context) (*schema.Session, error) {
	current, err := r.store.Session()
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}
	if !current.ExpiresWithin(r.now(), RefreshMargin) {
		return current, nil
	}
	if current.RefreshToken == "" {
		r.log.Warn("session expiring with no refresh token")
		if err := r.store.SetSession(nil); err != nil {
			return nil, err
		}
		return nil, nil
	}
	refreshed, err := r.provider.Refresh(ctx, current.RefreshToken)
	if err != nil {
		r.log.Warn("session refresh failed", "err", err)
		if err := r.store.SetSession(nil); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = current.RefreshToken
	}
	if err := r.store.SetSession(&refreshed); err != nil {
		return nil, err
	}
	r.log.Debug("session refreshed", "expires_at", refreshed.ExpiresAt)
	return &refreshed, nil
}

// AcceptSync stores a session pushed in by the companion surface and
// acknowledges it so the sender stops retrying.
func (r *Relay) AcceptSync(session schema.Session) (schema.SyncSessionResponse, error) {
	if session.AccessToken == "" {
		return schema.SyncSessionResponse{}, schema.ErrInvalidRequest
	}
	if err := r.store.SetSession(&session); err != nil {
		return schema.SyncSessionResponse{}, err
	}
	r.log.Info("session sync accepted", "expires_at", session.ExpiresAt)
	return schema.SyncSessionResponse{Acked: true}, nil
}
