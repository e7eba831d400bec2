package forum

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
)

// Client talks to the Discourse admin API with a static API key.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	apiUsername string
}

type Config struct {
	BaseURL     string
	APIKey      string
	APIUsername string
	Timeout     time.Duration
	// Optional: HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

const defaultTimeout = 10 * time.Second

func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("forum: invalid base url %q", cfg.BaseURL)
	}
	if cfg.APIKey == "" || cfg.APIUsername == "" {
		return nil, errors.New("forum: api key and api username are required")
	}
	h := cfg.HTTPClient
	if h == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		h = &http.Client{Timeout: timeout}
	}
	return &Client{
		http:        h,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		apiUsername: cfg.APIUsername,
	}, nil
}

// APIError is a non-2xx reply from the forum.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("forum: %s %s: %s", e.Method, e.Path, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsStatus reports whether err is an APIError with exactly the given status.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Group returns the group descriptor for name.
func (c *Client) Group(ctx context.Context, name string) (Group, error) {
	var out struct {
		Group Group `json:"group"`
	}
	if err := c.do(ctx, http.MethodGet, "/groups/"+url.PathEscape(name)+".json", nil, &out); err != nil {
		return Group{}, err
	}
	if out.Group.ID == 0 {
		return Group{}, fmt.Errorf("forum: group %q: missing id in reply", name)
	}
	return out.Group, nil
}

// AddGroupMember adds username to the group. Discourse answers 422 when the
// user is already a member; that surfaces as an *APIError like any other
// status and is left for the caller to classify.
func (c *Client) AddGroupMember(ctx context.Context, groupID int64, username string) error {
	body := map[string]string{"usernames": username}
	return c.do(ctx, http.MethodPut, "/groups/"+strconv.FormatInt(groupID, 10)+"/members.json", body, nil)
}

// UserByID fetches a user, including their group memberships.
func (c *Client) UserByID(ctx context.Context, memberID int64) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/admin/users/"+strconv.FormatInt(memberID, 10)+".json", nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// maxErrorBody caps how much of an error reply is kept in APIError.
const maxErrorBody = 512

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("forum: build request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Api-Username", c.apiUsername)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("forum: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("forum: %s %s: decode: %w", method, path, err)
	}
	return nil
}
