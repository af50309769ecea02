package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"familytasks/pkg/trace"
)

// CronClient calls POST /cron/daily-tasks?familyId= on a running server. It is the
// DailyChecker a client-side fallback scheduler uses.
type CronClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewCronClient(baseURL, token string) *CronClient {
	return &CronClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type cronEnvelope struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Results *Summary `json:"results"`
}

func (c *CronClient) CheckAndGenerate(ctx context.Context, familyID string) (Result, error) {
	endpoint := c.baseURL + "/cron/daily-tasks?familyId=" + url.QueryEscape(familyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return Result{}, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	var env cronEnvelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && env.Error != "" {
			return Result{}, fmt.Errorf("cron endpoint %d: %s", resp.StatusCode, env.Error)
		}
		return Result{}, fmt.Errorf("cron endpoint error: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("decode cron response: %w", decodeErr)
	}
	if env.Results == nil {
		return Result{}, fmt.Errorf("cron response has no results")
	}
	if len(env.Results.Errors) > 0 {
		return Result{}, fmt.Errorf("daily check failed: %s", strings.Join(env.Results.Errors, "; "))
	}
	return Result{Created: env.Results.TotalTasksCreated, Date: env.Results.Date}, nil
}
