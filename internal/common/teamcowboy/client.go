// Package teamcowboy is a client for the Team Cowboy REST API.
package teamcowboy

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	commonhttp "team-notifier/internal/common/http"
)

const DefaultBaseURL = "https://api.teamcowboy.com/v1/"

// Config holds the API account and the team leader's login.
type Config struct {
	BaseURL    string
	PublicKey  string
	PrivateKey string
	Username   string
	Password   string
	Timeout    time.Duration
}

type Client struct {
	http       *commonhttp.Client
	baseURL    string
	publicKey  string
	privateKey string
	username   string
	password   string

	now   func() time.Time
	nonce func() string

	mu    sync.Mutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = commonhttp.NewClientWith(hc) }
}

// WithClock replaces the timestamp and nonce sources used for signing.
func WithClock(now func() time.Time, nonce func() string) Option {
	return func(c *Client) {
		c.now = now
		c.nonce = nonce
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := &Client{
		http:       commonhttp.NewClient(cfg.Timeout),
		baseURL:    cfg.BaseURL,
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
		username:   cfg.Username,
		password:   cfg.Password,
		now:        time.Now,
		nonce:      func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate exchanges the username and password for a user token.
func (c *Client) Authenticate(ctx context.Context) error {
	params := url.Values{}
	params.Set("username", c.username)
	params.Set("password", c.password)

	var tok userToken
	if err := c.do(ctx, http.MethodPost, "Auth_GetUserToken", params, &tok); err != nil {
		return err
	}
	if tok.Token == "" {
		return errors.New("teamcowboy Auth_GetUserToken: empty token")
	}

	c.mu.Lock()
	c.token = tok.Token
	c.mu.Unlock()
	return nil
}

// Teams lists the teams of the authenticated user.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var teams []Team
	if err := c.authed(ctx, http.MethodGet, "User_GetTeams", url.Values{}, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// TeamEvents lists the upcoming events of a team.
func (c *Client) TeamEvents(ctx context.Context, teamID int64) ([]Event, error) {
	params := url.Values{}
	params.Set("teamId", strconv.FormatInt(teamID, 10))

	var events []Event
	if err := c.authed(ctx, http.MethodGet, "User_GetTeamEvents", params, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// AttendanceList returns the RSVP list of one event.
func (c *Client) AttendanceList(ctx context.Context, teamID, eventID int64) (*AttendanceList, error) {
	params := url.Values{}
	params.Set("teamId", strconv.FormatInt(teamID, 10))
	params.Set("eventId", strconv.FormatInt(eventID, 10))

	var list AttendanceList
	if err := c.authed(ctx, http.MethodGet, "Event_GetAttendanceList", params, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Roster lists the members of a team.
func (c *Client) Roster(ctx context.Context, teamID int64) ([]Member, error) {
	params := url.Values{}
	params.Set("teamId", strconv.FormatInt(teamID, 10))

	var members []Member
	if err := c.authed(ctx, http.MethodGet, "Team_GetRoster", params, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// authed calls a method that needs a user token, logging in first if needed
// and once more if the token was rejected.
func (c *Client) authed(ctx context.Context, httpMethod, method string, params url.Values, out interface{}) error {
	for attempt := 0; ; attempt++ {
		token, err := c.userToken(ctx)
		if err != nil {
			return err
		}

		p := cloneValues(params)
		p.Set("userToken", token)
		err = c.do(ctx, httpMethod, method, p, out)

		var apiErr *APIError
		if attempt == 0 && errors.As(err, &apiErr) && apiErr.Unauthorized() {
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			continue
		}
		return err
	}
}

func (c *Client) userToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}
	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func (c *Client) do(ctx context.Context, httpMethod, method string, params url.Values, out interface{}) error {
	p := c.signedParams(httpMethod, method, params)

	var (
		req *http.Request
		err error
	)
	if httpMethod == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(p.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, httpMethod, c.baseURL+"?"+p.Encode(), nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	body, fetchErr := c.http.Fetch(ctx, req)
	if len(body) == 0 {
		if fetchErr != nil {
			return fmt.Errorf("teamcowboy %s: %w", method, fetchErr)
		}
		return fmt.Errorf("teamcowboy %s: empty response", method)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if fetchErr != nil {
			return fmt.Errorf("teamcowboy %s: %w", method, fetchErr)
		}
		return fmt.Errorf("teamcowboy %s: failed to decode response: %w", method, err)
	}

	if !env.Success {
		var wrapped struct {
			Error APIError `json:"error"`
		}
		_ = json.Unmarshal(env.Body, &wrapped)
		apiErr := wrapped.Error
		apiErr.Method = method
		if apiErr.HTTPResponse == 0 {
			var statusErr *commonhttp.StatusError
			if errors.As(fetchErr, &statusErr) {
				apiErr.HTTPResponse = statusErr.StatusCode
			}
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Body, out); err != nil {
		return fmt.Errorf("teamcowboy %s: failed to decode body: %w", method, err)
	}
	return nil
}

// signedParams adds the common parameters and the request signature.
func (c *Client) signedParams(httpMethod, method string, params url.Values) url.Values {
	p := cloneValues(params)
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	nonce := c.nonce()

	p.Set("api_key", c.publicKey)
	p.Set("method", method)
	p.Set("timestamp", timestamp)
	p.Set("nonce", nonce)
	p.Set("response_type", "json")

	p.Set("sig", Signature(c.privateKey, httpMethod, method, timestamp, nonce, p))
	return p
}

// Signature computes the request signature: the hex SHA-1 of the private key,
// HTTP method, API method, timestamp, nonce and the canonical request string,
// joined with "|".
func Signature(privateKey, httpMethod, method, timestamp, nonce string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sig" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return strings.ToLower(keys[i]) < strings.ToLower(keys[j]) })

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, strings.ToLower(rawURLEncode(k))+"="+strings.ToLower(rawURLEncode(params.Get(k))))
	}

	raw := strings.Join([]string{
		privateKey,
		strings.ToUpper(httpMethod),
		method,
		timestamp,
		nonce,
		strings.Join(pairs, "&"),
	}, "|")

	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// rawURLEncode percent-encodes like RFC 3986: spaces become %20.
func rawURLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+6)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
