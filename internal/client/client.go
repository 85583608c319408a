// Package client is a Go client for the IRA REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ira/internal/auth"
	"ira/internal/chat"
	"ira/internal/incidents"
)

// ErrUnreachable replaces transport failures. Callers show it instead of the
// underlying network error.
var ErrUnreachable = errors.New("could not reach server")

// APIError is a non-2xx response. Message is the server's text, unmodified.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user"`
}

type NewIncident struct {
	Title    string             `json:"title"`
	Severity incidents.Severity `json:"severity,omitempty"`
	Status   incidents.Status   `json:"status,omitempty"`
	Service  string             `json:"service,omitempty"`
	Message  string             `json:"message,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Register(ctx context.Context, in auth.RegisterInput) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Send posts one chat turn and returns the bot's reply.
func (c *Client) Send(ctx context.Context, text, session string) (string, error) {
	body := map[string]string{"text": text, "session": session}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", body, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}

func (c *Client) History(ctx context.Context, session string) ([]chat.Message, error) {
	var out []chat.Message
	if err := c.do(ctx, http.MethodGet, "/api/chat/history/"+url.PathEscape(session), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListIncidents(ctx context.Context, f incidents.ListFilter) ([]incidents.Incident, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Severity != "" {
		q.Set("severity", string(f.Severity))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	path := "/api/incidents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []incidents.Incident
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetIncident(ctx context.Context, id string) (*incidents.Incident, error) {
	var out incidents.Incident
	if err := c.do(ctx, http.MethodGet, "/api/incidents/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateIncident(ctx context.Context, in NewIncident) (*incidents.Incident, error) {
	var out incidents.Incident
	if err := c.do(ctx, http.MethodPost, "/api/incidents", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateIncident(ctx context.Context, id string, p incidents.Patch) (*incidents.Incident, error) {
	var out incidents.Incident
	if err := c.do(ctx, http.MethodPatch, "/api/incidents/"+url.PathEscape(id), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrUnreachable
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrUnreachable
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{Status: status, Message: msg}
	}
	return &APIError{Status: status, Code: body.Code, Message: body.Message}
}
