package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidTab indicates an invalid tab identifier.
	ErrInvalidTab = errors.New("invalid tab")
	// ErrNoReceiver indicates the target page has no message listener
	// registered yet.
	ErrNoReceiver = errors.New("receiving end does not exist")
	// ErrInjectionFailed indicates content-script injection into a tab
	// failed.
	ErrInjectionFailed = errors.New("content script injection failed")
	// ErrUnauthorized indicates no valid session is available. The
	// message is surfaced verbatim to the overlay's error banner.
	ErrUnauthorized = errors.New("Unauthorized: no active session")
	// ErrSessionExpired indicates the stored session could not be
	// refreshed.
	ErrSessionExpired = errors.New("session expired")
	// ErrLoginFailed indicates the interactive login flow did not
	// produce a session.
	ErrLoginFailed = errors.New("login failed")
	// ErrEmptyCapture indicates a capture rectangle with no area.
	ErrEmptyCapture = errors.New("empty capture region")
	// ErrBackendUnavailable indicates the note backend rejected or
	// failed the request.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
