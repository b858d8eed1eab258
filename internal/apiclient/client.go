// Package apiclient talks to the hackattend REST API on behalf of the
// scanner station.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hackattend/internal/model"
)

// Client calls the API with a bearer token obtained from Login.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	token   string
}

// New creates a client with a request timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Login signs in and keeps the session token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, error) {
	var out struct {
		User  model.User `json:"user"`
		Token string     `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return model.User{}, err
	}
	c.token = out.Token
	return out.User, nil
}

// Events lists events, optionally filtered by status.
func (c *Client) Events(ctx context.Context, status model.EventStatus) ([]model.Event, error) {
	path := "/api/events"
	if status != "" {
		path += "?status=" + string(status)
	}
	var out []model.Event
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Submit records a scanned QR payload at eventID.
func (c *Client) Submit(ctx context.Context, eventID, payload string) (model.AttendanceRecord, error) {
	var out model.AttendanceRecord
	err := c.do(ctx, http.MethodPost, "/api/attendance/scan", map[string]string{"eventId": eventID, "payload": payload}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return model.Network("Network error", fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return model.Network("Network error", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode >= 300 {
		return errorFromResponse(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return model.Network("Unexpected response", fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

// errorFromResponse rebuilds a typed error from an API error body.
func errorFromResponse(status int, raw []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch status {
	case http.StatusBadRequest:
		return model.Validation(msg)
	case http.StatusUnauthorized:
		return model.Auth(msg)
	case http.StatusForbidden:
		if msg == "Student not verified" {
			return model.NotVerified(msg)
		}
		return model.Forbidden(msg)
	case http.StatusNotFound:
		return model.NotFound(msg)
	case http.StatusConflict:
		return model.Duplicate(msg)
	}
	return model.Network(msg, fmt.Errorf("server returned %d", status))
}
