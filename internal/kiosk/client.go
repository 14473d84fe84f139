package kiosk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gannfg/obelisk-learning-sub002/internal/model"
	"github.com/gannfg/obelisk-learning-sub002/internal/util"
)

// Client 调用签到服务的 HTTP 接口，满足 Submitter
type Client struct {
	BaseURL     string
	AccessToken string
	HTTP        *http.Client
}

func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AccessToken: accessToken,
		HTTP:        &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// VerifyToken 加载令牌对应的工作坊信息
func (c *Client) VerifyToken(ctx context.Context, token string) (*model.WorkshopSummary, error) {
	var summary model.WorkshopSummary
	if err := c.do(ctx, http.MethodGet, "/api/checkin/"+url.PathEscape(token), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) Submit(ctx context.Context, sessionToken, payload string) (*Outcome, error) {
	body := map[string]string{"token": sessionToken, "payload": payload}
	var out Outcome
	if err := c.do(ctx, http.MethodPost, "/api/checkin", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode != http.StatusOK {
		return errorForStatus(resp.StatusCode, env.Message)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// errorForStatus 与服务端 util.StatusForError 的映射相反
func errorForStatus(status int, message string) error {
	var sentinel error
	switch status {
	case http.StatusForbidden:
		sentinel = util.ErrRoleForbidden
	case http.StatusConflict:
		sentinel = util.ErrTokenMismatch
	case http.StatusGone:
		sentinel = util.ErrTokenExpired
	case http.StatusNotFound:
		sentinel = util.ErrWorkshopNotFound
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		sentinel = util.ErrStoreUnavailable
	case http.StatusUnauthorized:
		return errors.New("session expired, please sign in again")
	default:
		if message == "" {
			message = http.StatusText(status)
		}
		return fmt.Errorf("unexpected status %d: %s", status, message)
	}
	return sentinel
}
