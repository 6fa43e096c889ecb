package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/wonny/aegis-edge/pkg/config"
	"github.com/wonny/aegis-edge/pkg/httputil"
	"github.com/wonny/aegis-edge/pkg/logger"
)

// DefaultBaseURL is the public Alpha Vantage query endpoint
const DefaultBaseURL = "https://www.alphavantage.co/query"

// ErrThrottled is returned when the API answers with a rate-limit note
var ErrThrottled = errors.New("alphavantage: request throttled")

// Client handles communication with Alpha Vantage
// ⭐ SSOT: Alpha Vantage API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new Alpha Vantage client.
// The http client should already carry the per-minute limiter for the key's plan.
func NewClient(httpClient *httputil.Client, cfg config.AlphaVantageConfig, log *logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// apiStatus captures the fields Alpha Vantage uses to report problems with HTTP 200
type apiStatus struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (s apiStatus) err(function string) error {
	switch {
	case s.ErrorMessage != "":
		return fmt.Errorf("alphavantage %s: %s", function, s.ErrorMessage)
	case s.Note != "":
		return fmt.Errorf("%w: %s", ErrThrottled, s.Note)
	case s.Information != "":
		return fmt.Errorf("alphavantage %s: %s", function, s.Information)
	}
	return nil
}

// query calls one API function and decodes the body into dest
func (c *Client) query(ctx context.Context, function string, params url.Values, dest interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("function", function)
	params.Set("apikey", c.apiKey)

	var raw json.RawMessage
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"?"+params.Encode(), &raw); err != nil {
		return fmt.Errorf("alphavantage %s: %w", function, err)
	}

	var status apiStatus
	if err := json.Unmarshal(raw, &status); err == nil {
		if err := status.err(function); err != nil {
			return err
		}
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("alphavantage %s: decode: %w", function, err)
	}
	return nil
}
