package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		Logger:         logger,
		ClientID:       "1234",
		ClientSecret:   "shh",
		RedirectURI:    "http://localhost:8000/api/v1/auth/strava/callback",
		BaseURL:        srv.URL + "/api/v3",
		OAuthURL:       srv.URL + "/oauth/",
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestStrava_Client_Config(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{ClientID: "1", ClientSecret: "2"})
	require.EqualError(t, err, "logger is required")
	_, err = NewClient(Config{Logger: logger, ClientSecret: "2"})
	require.EqualError(t, err, "client id is required")
	_, err = NewClient(Config{Logger: logger, ClientID: "1"})
	require.EqualError(t, err, "client secret is required")

	cfg := Config{Logger: logger, ClientID: "1", ClientSecret: "2"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, defaultBaseURL, cfg.BaseURL)
	assert.Equal(t, defaultOAuthURL, cfg.OAuthURL)
	assert.Equal(t, defaultMaxTries, cfg.MaxTries)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.MaxBackoff)
	assert.NotNil(t, cfg.HTTPClient)
}

func TestStrava_Client_AuthorizationURL(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Logger: logger, ClientID: "1234", ClientSecret: "shh", RedirectURI: "http://localhost/cb"})
	require.NoError(t, err)

	u, err := url.Parse(c.AuthorizationURL())
	require.NoError(t, err)
	assert.Equal(t, "www.strava.com", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "1234", q.Get("client_id"))
	assert.Equal(t, "http://localhost/cb", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, defaultScope, q.Get("scope"))
}

func TestStrava_Client_Tokens(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var forms []url.Values
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		mu.Lock()
		forms = append(forms, r.PostForm)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"access_token":"access-1","refresh_token":"refresh-2","expires_at":1700000000,
			"athlete":{"id":42,"firstname":"Jacob","lastname":"Runner"}}`)
	}))

	tok, err := c.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh-2", tok.RefreshToken)
	require.NotNil(t, tok.Athlete)
	assert.Equal(t, int64(42), tok.Athlete.ID)
	assert.Equal(t, "Jacob Runner", tok.Athlete.FullName())

	_, err = c.RefreshAccessToken(context.Background(), "refresh-1")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, forms, 2)
	assert.Equal(t, "authorization_code", forms[0].Get("grant_type"))
	assert.Equal(t, "the-code", forms[0].Get("code"))
	assert.Equal(t, "1234", forms[0].Get("client_id"))
	assert.Equal(t, "shh", forms[0].Get("client_secret"))
	assert.Equal(t, "refresh_token", forms[1].Get("grant_type"))
	assert.Equal(t, "refresh-1", forms[1].Get("refresh_token"))
}

func TestStrava_Client_TokenWithoutAccessToken(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{}`)
	}))
	_, err := c.RefreshAccessToken(context.Background(), "refresh-1")
	require.Error(t, err)
}

func TestStrava_Client_ListActivitiesPages(t *testing.T) {
	t.Parallel()

	const total = 450
	after := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var pages atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/athlete/activities", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, strconv.FormatInt(after.Unix(), 10), r.URL.Query().Get("after"))
		assert.Empty(t, r.URL.Query().Get("before"))
		pages.Add(1)

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		var batch []Activity
		for i := (page - 1) * perPage; i < min(page*perPage, total); i++ {
			batch = append(batch, Activity{ID: int64(i + 1), Name: "Run", Type: "Run"})
		}
		assert.NoError(t, json.NewEncoder(w).Encode(batch))
	}))

	activities, err := c.ListActivities(context.Background(), "token-1", ListOptions{After: after})
	require.NoError(t, err)
	assert.Len(t, activities, total)
	assert.Equal(t, int64(1), activities[0].ID)
	assert.Equal(t, int64(total), activities[total-1].ID)
	assert.Equal(t, int32(3), pages.Load())
}

func TestStrava_Client_ListActivitiesLimit(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		var batch []Activity
		for i := range 5 {
			batch = append(batch, Activity{ID: int64(i + 1)})
		}
		assert.NoError(t, json.NewEncoder(w).Encode(batch))
	}))

	activities, err := c.ListActivities(context.Background(), "token-1", ListOptions{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, activities, 5)
}

func TestStrava_Client_GetActivity(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/activities/77" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = fmt.Fprint(w, `{"id":77,"athlete":{"id":42},"name":"Tempo","description":"RPE:7","type":"Run",
			"moving_time":2400,"distance":8046.7,"average_speed":3.35,"start_date":"2025-01-15T07:30:00Z",
			"workout_type":3,"calories":612.4}`)
	}))

	a, err := c.GetActivity(context.Background(), "token-1", 77)
	require.NoError(t, err)
	assert.Equal(t, "Tempo", a.Name)
	require.NotNil(t, a.Description)
	assert.Equal(t, "RPE:7", *a.Description)
	assert.Equal(t, 3, *a.WorkoutType)
	assert.Equal(t, time.Date(2025, 1, 15, 7, 30, 0, 0, time.UTC), a.StartDate)

	_, err = c.GetActivity(context.Background(), "token-1", 78)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStrava_Client_Retries(t *testing.T) {
	t.Parallel()

	t.Run("server errors are retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(w, "upstream unavailable", http.StatusBadGateway)
				return
			}
			_, _ = fmt.Fprint(w, `{"id":42,"firstname":"Jacob"}`)
		}))

		a, err := c.GetAthlete(context.Background(), "token-1")
		require.NoError(t, err)
		assert.Equal(t, int64(42), a.ID)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("retries are bounded", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, "boom", http.StatusInternalServerError)
		}))

		_, err := c.GetAthlete(context.Background(), "token-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http 500")
		assert.Equal(t, int32(defaultMaxTries), calls.Load())
	})

	t.Run("rate limit is permanent", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))

		_, err := c.ListActivities(context.Background(), "token-1", ListOptions{})
		require.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, `{"message":"Authorization Error"}`, http.StatusUnauthorized)
		}))

		_, err := c.GetActivity(context.Background(), "bad-token", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http 401")
		assert.Equal(t, int32(1), calls.Load())
	})
}
