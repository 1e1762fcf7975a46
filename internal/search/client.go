// Package search answers free-text queries through an OpenAI-compatible
// chat completions endpoint.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/microcosm-cc/bluemonday"

	"proxybrowser-go/internal/config"
)

var (
	// ErrSearchFailed wraps every failure to obtain or decode an answer.
	ErrSearchFailed = errors.New("search failed")
	// ErrDisabled is returned when no API key is configured.
	ErrDisabled = errors.New("search is not configured")
)

const systemPrompt = "You are an ultra-advanced search engine. Provide a comprehensive, accurate, and insightful response. " +
	"Also provide 5 highly relevant URLs with titles and short descriptions. " +
	`Format as JSON: { "answer": "...", "results": [{ "title": "...", "url": "...", "snippet": "..." }] }`

// Result is one suggested page.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Answer is the response of the search endpoint.
type Answer struct {
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Searcher answers a query.
type Searcher interface {
	Search(ctx context.Context, query string) (*Answer, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls the completion API. Transient failures (connection errors,
// 429 and 5xx) are retried by the underlying retryablehttp transport.
type Client struct {
	http    *resty.Client
	model   string
	enabled bool
	policy  *bluemonday.Policy
	logger  *slog.Logger
}

// NewClient creates a Client from the [search] config section. Without an
// API key every Search returns ErrDisabled.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return newClient(cfg, logger, 500*time.Millisecond, 5*time.Second)
}

func newClient(cfg *config.Config, logger *slog.Logger, minWait, maxWait time.Duration) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Search.MaxRetries
	retryClient.RetryWaitMin = minWait
	retryClient.RetryWaitMax = maxWait
	retryClient.Logger = nil

	r := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(strings.TrimRight(cfg.Search.BaseURL, "/")).
		SetTimeout(time.Duration(cfg.Search.TimeoutSeconds) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Search.APIKey != "" {
		r.SetAuthToken(cfg.Search.APIKey)
	}

	logger = logger.With("component", "search_client")
	if cfg.Search.APIKey == "" {
		logger.Info("search disabled: no api key configured")
	}

	return &Client{
		http:    r,
		model:   cfg.Search.Model,
		enabled: cfg.Search.APIKey != "",
		policy:  bluemonday.StrictPolicy(),
		logger:  logger,
	}
}

// Search asks the model for an answer and a list of relevant pages.
func (c *Client) Search(ctx context.Context, query string) (*Answer, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: query},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	var (
		out    chatResponse
		apiErr apiError
	)
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: upstream status %d: %s", ErrSearchFailed, resp.StatusCode(), apiErr.Error.Message)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrSearchFailed)
	}

	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		content = "{}"
	}
	var ans Answer
	if err := json.Unmarshal([]byte(content), &ans); err != nil {
		return nil, fmt.Errorf("%w: decode answer: %w", ErrSearchFailed, err)
	}

	c.clean(&ans)
	c.logger.Debug("search answered",
		"results", len(ans.Results),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &ans, nil
}

// clean strips markup from model text and drops results whose URL is not an
// absolute http or https URL.
func (c *Client) clean(ans *Answer) {
	ans.Answer = c.text(ans.Answer)

	results := make([]Result, 0, len(ans.Results))
	for _, r := range ans.Results {
		u, err := url.Parse(strings.TrimSpace(r.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		results = append(results, Result{
			Title:   c.text(r.Title),
			URL:     u.String(),
			Snippet: c.text(r.Snippet),
		})
	}
	ans.Results = results
}

func (c *Client) text(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(s)))
}
