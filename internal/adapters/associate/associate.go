// Package associate implements the one-time room-association call that
// binds a fresh room key to the media's playback token.
package associate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/filmgrain/groupwatch/internal/domain"
)

// Client talks to POST {baseURL}/groupwatch/associate.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type associateRequest struct {
	MediaAuthToken string `json:"mediaAuthToken"`
	RoomKey        string `json:"roomKey"`
}

// Associate binds key to mediaAuthToken server-side. Any non-2xx status
// is an error; the caller aborts room creation before touching the
// transport.
func (c *Client) Associate(ctx context.Context, mediaAuthToken string, key domain.RoomKey) error {
	body, err := json.Marshal(associateRequest{MediaAuthToken: mediaAuthToken, RoomKey: string(key)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/groupwatch/associate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("associate: unexpected status %d", resp.StatusCode)
	}
	return nil
}
