// Package matrix talks to a Synapse homeserver through the client and admin APIs.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"friday/logger"
)

const roomsPageSize = 100

var (
	ErrNoAccessToken      = errors.New("matrix: login returned no access token")
	ErrMissingCredentials = errors.New("matrix: username and password are required")
)

// APIError is a non-2xx reply from the homeserver.
type APIError struct {
	StatusCode int
	ErrCode    string `json:"errcode"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.ErrCode != "" {
		return fmt.Sprintf("matrix: %d %s: %s", e.StatusCode, e.ErrCode, e.Message)
	}
	return fmt.Sprintf("matrix: unexpected status %d", e.StatusCode)
}

type LoginResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
	HomeServer  string `json:"home_server,omitempty"`
}

// Client is safe for concurrent use. The access token is obtained lazily with
// the configured credentials unless the client was built by WithToken.
type Client struct {
	homeserver string
	username   string
	password   string
	http       *http.Client
	log        *logrus.Entry

	mu    sync.Mutex
	token string
	fixed bool
}

func NewClient(homeserver, username, password string) *Client {
	return &Client{
		homeserver: homeserver,
		username:   username,
		password:   password,
		http:       &http.Client{Timeout: 30 * time.Second},
		log:        logger.Logger.WithField("component", "matrix"),
	}
}

// WithToken returns a client for the same homeserver that always sends the
// given bearer token and never logs in by itself.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		homeserver: c.homeserver,
		http:       c.http,
		log:        c.log,
		token:      token,
		fixed:      true,
	}
}

// Login signs in and caches the token for later calls. Empty arguments fall
// back to the configured credentials.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	if username == "" {
		username = c.username
	}
	if password == "" {
		password = c.password
	}
	resp, err := c.LoginAs(ctx, username, password)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if !c.fixed {
		c.token = resp.AccessToken
	}
	c.mu.Unlock()
	return resp, nil
}

// LoginAs signs in on behalf of someone else. It never uses the configured
// credentials and leaves the cached token alone.
func (c *Client) LoginAs(ctx context.Context, username, password string) (*LoginResponse, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	payload := map[string]interface{}{
		"type": "m.login.password",
		"identifier": map[string]string{
			"type": "m.id.user",
			"user": username,
		},
		"password": password,
	}

	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/_matrix/client/v3/login", "", payload, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, ErrNoAccessToken
	}
	c.log.WithField("user_id", resp.UserID).Info("logged in to homeserver")
	return &resp, nil
}

// AccessToken returns the cached token, logging in first if there is none.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token, fixed := c.token, c.fixed
	c.mu.Unlock()
	if token != "" || fixed {
		return token, nil
	}
	resp, err := c.Login(ctx, "", "")
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (c *Client) forgetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fixed && c.token == token {
		c.token = ""
	}
}

// authed performs a request with the access token. A 401 drops the cached
// token so the next call logs in again.
func (c *Client) authed(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}
	err = c.do(ctx, method, path, token, body, out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		c.forgetToken(token)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.homeserver+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("matrix %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// Room is a room entry from the Synapse admin room list. Fields are kept as
// decoded so callers can filter on any of them.
type Room map[string]interface{}

func (r Room) str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func (r Room) num(key string) int64 {
	if v, ok := r[key].(float64); ok {
		return int64(v)
	}
	return 0
}

func (r Room) ID() string         { return r.str("room_id") }
func (r Room) Name() string       { return r.str("name") }
func (r Room) Creator() string    { return r.str("creator") }
func (r Room) JoinedMembers() int { return int(r.num("joined_members")) }

// CreatedAt converts creation_ts (milliseconds) or returns nil when absent.
func (r Room) CreatedAt() *time.Time {
	ms := r.num("creation_ts")
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

// Matches reports whether every filter equals the room field of the same name
// when both are rendered as strings.
func (r Room) Matches(filters map[string]string) bool {
	for key, want := range filters {
		v, ok := r[key]
		if !ok || v == nil || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

type roomsPage struct {
	Rooms     []Room      `json:"rooms"`
	NextBatch interface{} `json:"next_batch"`
}

func (c *Client) eachRoom(ctx context.Context, keep func(Room) bool) ([]Room, error) {
	var (
		rooms []Room
		from  string
	)
	for {
		q := url.Values{"limit": {fmt.Sprint(roomsPageSize)}}
		if from != "" {
			q.Set("from", from)
		}
		var page roomsPage
		if err := c.authed(ctx, http.MethodGet, "/_synapse/admin/v1/rooms?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		for _, room := range page.Rooms {
			if keep(room) {
				rooms = append(rooms, room)
			}
		}
		// Synapse has sent next_batch both as a number and as a string.
		if page.NextBatch == nil {
			return rooms, nil
		}
		from = fmt.Sprint(page.NextBatch)
		if from == "" || from == "0" {
			return rooms, nil
		}
	}
}

// FetchAllRooms pages through the admin room list and keeps the rooms created
// by creator.
func (c *Client) FetchAllRooms(ctx context.Context, creator string) ([]Room, error) {
	return c.eachRoom(ctx, func(r Room) bool { return r.Creator() == creator })
}

// ListRooms pages through the admin room list and keeps the rooms matching
// all filters.
func (c *Client) ListRooms(ctx context.Context, filters map[string]string) ([]Room, error) {
	return c.eachRoom(ctx, func(r Room) bool { return r.Matches(filters) })
}

func (c *Client) RoomDetails(ctx context.Context, roomID string) (Room, error) {
	var room Room
	err := c.authed(ctx, http.MethodGet, "/_synapse/admin/v1/rooms/"+url.PathEscape(roomID), nil, &room)
	return room, err
}

func (c *Client) UserInfo(ctx context.Context, userID string) (map[string]interface{}, error) {
	var info map[string]interface{}
	err := c.authed(ctx, http.MethodGet, "/_synapse/admin/v2/users/"+url.PathEscape(userID), nil, &info)
	return info, err
}

// SendMessage posts an m.text message and returns its event id.
func (c *Client) SendMessage(ctx context.Context, roomID, body string) (string, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		url.PathEscape(roomID), uuid.NewString())
	var resp struct {
		EventID string `json:"event_id"`
	}
	payload := map[string]string{"msgtype": "m.text", "body": body}
	if err := c.authed(ctx, http.MethodPut, path, payload, &resp); err != nil {
		return "", err
	}
	return resp.EventID, nil
}
