// Package stats derives numeric facts (win counts, league averages)
// from an external paginated game-results source.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/metrics"
	"github.com/nba-insights/backend/pkg/logger"
	"github.com/nba-insights/backend/pkg/ratelimit"
	"github.com/nba-insights/backend/pkg/retry"
)

// PageSize is the source's page size; a shorter page is the
// end-of-data sentinel.
const PageSize = 100

// ErrRateLimited marks an upstream 429. It is the only retryable
// failure.
var ErrRateLimited = errors.New("stats source rate limited")

type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("stats source returned status %d", e.code)
}

type Team struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name"`
}

type GameTeam struct {
	ID int `json:"id"`
}

type Game struct {
	HomeTeam         GameTeam `json:"home_team"`
	VisitorTeam      GameTeam `json:"visitor_team"`
	HomeTeamScore    int      `json:"home_team_score"`
	VisitorTeamScore int      `json:"visitor_team_score"`
	Postseason       bool     `json:"postseason"`
}

type Config struct {
	BaseURL      string
	APIKey       string
	PageDelay    time.Duration
	RetryPolicy  retry.Policy
	RetryBackoff time.Duration
}

// Client talks to the paginated stats source. Every request passes
// through the shared blocking rate limiter; 429 responses are retried
// up to the policy's bound with a fixed backoff.
type Client struct {
	baseURL   string
	apiKey    string
	http      *http.Client
	limiter   *ratelimit.Limiter
	policy    retry.Policy
	pageDelay time.Duration
	backoff   time.Duration
}

func NewClient(cfg Config, limiter *ratelimit.Limiter) *Client {
	policy := cfg.RetryPolicy
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 3
	}
	policy.Retryable = func(err error) bool {
		return errors.Is(err, ErrRateLimited)
	}
	if policy.Logger == nil {
		policy.Logger = logger.GetLogger()
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		http:      &http.Client{Timeout: 15 * time.Second},
		limiter:   limiter,
		policy:    policy,
		pageDelay: cfg.PageDelay,
		backoff:   cfg.RetryBackoff,
	}
}

// Teams fetches the id/full-name table.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var page struct {
		Data []Team `json:"data"`
	}
	if err := c.get(ctx, "/teams", url.Values{"per_page": {"100"}}, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// GamesPage fetches one page of game results for a season. teamID 0
// means no per-team filter.
func (c *Client) GamesPage(ctx context.Context, season, teamID, pageNum int) ([]Game, error) {
	params := url.Values{
		"seasons[]": {strconv.Itoa(season)},
		"per_page":  {strconv.Itoa(PageSize)},
		"page":      {strconv.Itoa(pageNum)},
	}
	if teamID > 0 {
		params.Set("team_ids[]", strconv.Itoa(teamID))
	}

	// Fixed inter-page delay on top of the global throttle, the
	// source penalizes burst pagination.
	if c.pageDelay > 0 && pageNum > 1 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	var page struct {
		Data []Game `json:"data"`
	}
	if err := c.get(ctx, "/games", params, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return retry.Do(ctx, c.policy, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			metrics.StatsSourceRequests.WithLabelValues("error").Inc()
			return fmt.Errorf("stats source request failed: %w", err)
		}
		defer resp.Body.Close()

		metrics.StatsSourceRequests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if c.limiter != nil {
				c.limiter.RecordThrottle(c.backoff)
			}
			logger.Warn("Stats source rate limited", zap.String("path", path))
			return ErrRateLimited
		case resp.StatusCode != http.StatusOK:
			return &httpStatusError{code: resp.StatusCode}
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode stats response: %w", err)
		}
		return nil
	})
}
