package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webclip/schema"
)

// Client is the thin note-backend client. It does one thing per call,
// carries bearer auth, and maps failures to structured errors; no
// retries and no offline queue.
type Client struct {
	baseURL string
	http    *http.Client
	log     pslog.Logger
}

// New constructs a Client for the backend base URL.
func New(baseURL string, logger pslog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     logger,
	}
}

// SavedNote is the backend's record of a stored note.
type SavedNote struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type createNoteRequest struct {
	Body      string              `json:"body,omitempty"`
	SourceURL string              `json:"source_url,omitempty"`
	Kind      schema.ViewMode     `json:"kind,omitempty"`
	Image     []byte              `json:"image,omitempty"`
	Page      schema.PageMetadata `json:"page,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateNote stores the draft under the session's account. A 401 maps
// to schema.ErrUnauthorized so callers can surface the reconnect
// affordance; other failures map to schema.ErrBackendUnavailable.
func (c *Client) CreateNote(ctx context.Context, session schema.Session, note schema.NoteDraft) (SavedNote, error) {
	payload := createNoteRequest{
		Body:      note.Body,
		SourceURL: note.SourceURL,
		Kind:      note.Mode,
		Page:      note.Page,
	}
	if note.Capture != nil {
		payload.Image = note.Capture.PNG
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return SavedNote{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/notes", bytes.NewReader(body))
	if err != nil {
		return SavedNote{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		if c.log != nil {
			c.log.Warn("backend request failed", "err", err)
		}
		return SavedNote{}, fmt.Errorf("%w: %v", schema.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return SavedNote{}, schema.ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg := readError(resp.Body)
		if c.log != nil {
			c.log.Warn("backend rejected note", "status", resp.StatusCode, "msg", msg)
		}
		if msg == "" {
			msg = resp.Status
		}
		return SavedNote{}, fmt.Errorf("%w: %s", schema.ErrBackendUnavailable, msg)
	}

	var saved SavedNote
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		return SavedNote{}, fmt.Errorf("%w: bad response: %v", schema.ErrBackendUnavailable, err)
	}
	if c.log != nil {
		c.log.Debug("backend note created", "note", saved.ID)
	}
	return saved, nil
}

func readError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var parsed errorResponse
	if json.Unmarshal(data, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(data))
}
