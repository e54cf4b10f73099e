// Package strava talks to the Strava API and loads athlete activities into the store.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultBaseURL        = "https://www.strava.com/api/v3"
	defaultOAuthURL       = "https://www.strava.com/oauth"
	defaultScope          = "read,activity:read_all,profile:read_all"
	defaultMaxTries       = 5
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultHTTPTimeout    = 30 * time.Second

	maxPageSize = 200
)

var (
	ErrRateLimited = errors.New("strava: rate limit exceeded")
	ErrNotFound    = errors.New("strava: not found")
)

type Config struct {
	Logger       *slog.Logger
	ClientID     string
	ClientSecret string
	RedirectURI  string

	BaseURL    string
	OAuthURL   string
	HTTPClient *http.Client

	MaxTries       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	if c.ClientSecret == "" {
		return errors.New("client secret is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.OAuthURL == "" {
		c.OAuthURL = defaultOAuthURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	c.OAuthURL = strings.TrimSuffix(c.OAuthURL, "/")
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.MaxTries <= 0 {
		c.MaxTries = defaultMaxTries
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	return nil
}

type Client struct {
	log *slog.Logger
	cfg Config
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{log: cfg.Logger, cfg: cfg}, nil
}

type Athlete struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}

func (a Athlete) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type Token struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    int64    `json:"expires_at"`
	Athlete      *Athlete `json:"athlete,omitempty"`
}

// Activity covers both the summary and the detailed activity representations.
// Description, Calories and the counters are only populated on detailed activities.
type Activity struct {
	ID                 int64     `json:"id"`
	Athlete            Athlete   `json:"athlete"`
	Name               string    `json:"name"`
	Description        *string   `json:"description"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	MovingTime         int       `json:"moving_time"`
	Distance           float64   `json:"distance"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	StartDate          time.Time `json:"start_date"`
	AverageCadence     *float64  `json:"average_cadence"`
	AverageHeartrate   *float64  `json:"average_heartrate"`
	WorkoutType        *int      `json:"workout_type"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	Manual             bool      `json:"manual"`
	Calories           *float64  `json:"calories"`
	AchievementCount   *int      `json:"achievement_count"`
	KudosCount         *int      `json:"kudos_count"`
	CommentCount       *int      `json:"comment_count"`
	AthleteCount       *int      `json:"athlete_count"`
	SufferScore        *float64  `json:"suffer_score"`
}

type ListOptions struct {
	After  time.Time
	Before time.Time
	Limit  int // 0 lists everything in range
}

// AuthorizationURL is where athletes are sent to grant access.
func (c *Client) AuthorizationURL() string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("approval_prompt", "auto")
	q.Set("scope", defaultScope)
	return c.cfg.OAuthURL + "/authorize?" + q.Encode()
}

// ExchangeCode trades an OAuth authorization code for tokens and the athlete summary.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	return c.token(ctx, form)
}

// RefreshAccessToken exchanges a refresh token for a fresh access token.
// Strava may rotate the refresh token; callers should persist Token.RefreshToken.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")
	return c.token(ctx, form)
}

func (c *Client) token(ctx context.Context, form url.Values) (*Token, error) {
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	var tok Token
	if err := c.do(ctx, "token", http.MethodPost, c.cfg.OAuthURL+"/token", "", form, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.New("strava: token response missing access token")
	}
	return &tok, nil
}

func (c *Client) GetAthlete(ctx context.Context, accessToken string) (*Athlete, error) {
	var a Athlete
	if err := c.do(ctx, "athlete", http.MethodGet, c.cfg.BaseURL+"/athlete", accessToken, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListActivities pages through the authenticated athlete's activity summaries.
func (c *Client) ListActivities(ctx context.Context, accessToken string, opts ListOptions) ([]Activity, error) {
	perPage := maxPageSize
	if opts.Limit > 0 && opts.Limit < perPage {
		perPage = opts.Limit
	}

	var out []Activity
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))
		if !opts.After.IsZero() {
			q.Set("after", strconv.FormatInt(opts.After.Unix(), 10))
		}
		if !opts.Before.IsZero() {
			q.Set("before", strconv.FormatInt(opts.Before.Unix(), 10))
		}

		var batch []Activity
		if err := c.do(ctx, "list_activities", http.MethodGet, c.cfg.BaseURL+"/athlete/activities?"+q.Encode(), accessToken, nil, &batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)

		if opts.Limit > 0 && len(out) >= opts.Limit {
			return out[:opts.Limit], nil
		}
		if len(batch) < perPage {
			return out, nil
		}
	}
}

func (c *Client) GetActivity(ctx context.Context, accessToken string, id int64) (*Activity, error) {
	var a Activity
	endpoint := fmt.Sprintf("%s/activities/%d", c.cfg.BaseURL, id)
	if err := c.do(ctx, "get_activity", http.MethodGet, endpoint, accessToken, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// do performs one API call, retrying network errors and 5xx responses with exponential backoff.
func (c *Client) do(ctx context.Context, endpoint, method, target, accessToken string, form url.Values, out any) error {
	op := func() (struct{}, error) {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		if accessToken != "" {
			req.Header.Set("Authorization", "Bearer "+accessToken)
		}

		resp, err := c.cfg.HTTPClient.Do(req)
		if err != nil {
			APIRequests.WithLabelValues(endpoint, "error").Inc()
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(ctx.Err())
			}
			return struct{}{}, fmt.Errorf("strava %s request failed: %w", endpoint, err)
		}
		defer resp.Body.Close()
		APIRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %s", ErrRateLimited, endpoint))
		case resp.StatusCode == http.StatusNotFound:
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, endpoint))
		case resp.StatusCode >= 500:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return struct{}{}, fmt.Errorf("strava %s: http %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(b)))
		case resp.StatusCode != http.StatusOK:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return struct{}{}, backoff.Permanent(fmt.Errorf("strava %s: http %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(b))))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("failed to decode strava %s response: %w", endpoint, err))
		}
		return struct{}{}, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxTries)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.log.Warn("strava: retrying request", "endpoint", endpoint, "error", err, "backoff", d)
		}),
	)
	return err
}
