package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/webclip/internal/appconfig"
	"pkt.systems/webclip/internal/session"
	"pkt.systems/webclip/schema"
)

func newSyncSessionCmd() *cobra.Command {
	var cfgPath string
	var token string
	var refreshToken string
	var expiresIn time.Duration
	cmd := &cobra.Command{
		Use:   "sync-session",
		Short: "Push a session to a running coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			if token == "" {
				return errors.New("--token is required")
			}
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			sess := schema.Session{
				AccessToken:  token,
				RefreshToken: refreshToken,
				ExpiresAt:    time.Now().Add(expiresIn),
			}
			pusher := envelopePusher{
				endpoint: fmt.Sprintf("http://%s/v1/message", cfg.HTTP.Addr),
				client:   &http.Client{Timeout: 10 * time.Second},
			}
			if !session.PushUntilAcked(cmd.Context(), pusher, sess, logger) {
				return errors.New("coordinator did not acknowledge the session")
			}
			logger.Info("session synced", "addr", cfg.HTTP.Addr)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&token, "token", "", "access token to push")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token to push")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "access token lifetime")
	return cmd
}

// envelopePusher delivers one SYNC_SESSION envelope over the
// coordinator's message endpoint.
type envelopePusher struct {
	endpoint string
	client   *http.Client
}

func (p envelopePusher) Push(ctx context.Context, sess schema.Session) (bool, error) {
	payload, err := json.Marshal(schema.SyncSessionRequest{Session: sess})
	if err != nil {
		return false, err
	}
	body, err := json.Marshal(schema.Envelope{
		Action:  schema.ActionSyncSession,
		Payload: payload,
	})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	httpRes, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer httpRes.Body.Close()
	if httpRes.StatusCode != http.StatusOK {
		io.Copy(io.Discard, httpRes.Body)
		return false, fmt.Errorf("coordinator returned %s", httpRes.Status)
	}
	var res schema.Result
	if err := json.NewDecoder(httpRes.Body).Decode(&res); err != nil {
		return false, err
	}
	if !res.Success {
		return false, errors.New(res.Error)
	}
	var ack schema.SyncSessionResponse
	if len(res.Data) > 0 {
		if err := json.Unmarshal(res.Data, &ack); err != nil {
			return false, err
		}
	}
	return ack.Acked, nil
}
