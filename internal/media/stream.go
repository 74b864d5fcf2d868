package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const callType = "default"

type StreamConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	TokenTTL  time.Duration
}

// StreamClient implements Provider against the Stream video REST API.
type StreamClient struct {
	cfg  StreamConfig
	http *http.Client
	now  func() time.Time
}

func NewStreamClient(cfg StreamConfig, client *http.Client) *StreamClient {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &StreamClient{cfg: cfg, http: client, now: time.Now}
}

type getOrCreateCallRequest struct {
	Data callData `json:"data"`
}

type callData struct {
	CreatedByID string       `json:"created_by_id"`
	Members     []callMember `json:"members"`
}

type callMember struct {
	UserID string `json:"user_id"`
}

func (c *StreamClient) CreateOrGetRoom(ctx context.Context, roomID, creatorUserID string) (string, error) {
	if roomID == "" || creatorUserID == "" {
		return "", fmt.Errorf("media: room id and creator are required")
	}

	serverToken, err := c.serverToken()
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(getOrCreateCallRequest{Data: callData{
		CreatedByID: creatorUserID,
		Members:     []callMember{{UserID: creatorUserID}},
	}})
	if err != nil {
		return "", fmt.Errorf("encode call request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/video/call/%s/%s?api_key=%s",
		c.cfg.BaseURL, callType, url.PathEscape(roomID), url.QueryEscape(c.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", serverToken)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: get-or-create call %s returned %d: %s",
			ErrProviderUnavailable, roomID, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return c.UserToken(creatorUserID)
}

// UserToken mints a client token that lets userID join calls.
func (c *StreamClient) UserToken(userID string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Add(-5 * time.Second).Unix(),
		"exp":     now.Add(c.cfg.TokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(c.cfg.APISecret))
	if err != nil {
		return "", fmt.Errorf("sign user token: %w", err)
	}
	return signed, nil
}

func (c *StreamClient) serverToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true})
	signed, err := token.SignedString([]byte(c.cfg.APISecret))
	if err != nil {
		return "", fmt.Errorf("sign server token: %w", err)
	}
	return signed, nil
}
