package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultBaseURL is the public Al Adhan API.
const DefaultBaseURL = "https://api.aladhan.com/v1"

// Client communicates with the Al Adhan prayer times API.
type Client struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	// Exported for testing with httptest.
	BaseURL string
	// Retries is how many times a network error or 5xx is retried.
	Retries uint64
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
}

// NewClient creates a new API client. An empty baseURL means DefaultBaseURL
// and a non-positive timeout means 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		BaseURL:    baseURL,
		Retries:    2,
		Backoff:    time.Second,
	}
}

// Query holds the optional calculation parameters of a timings request.
// Negative integers and empty strings are not sent.
type Query struct {
	Method         int
	School         int
	MethodSettings string // "fajr,maghrib,isha", only read with Method 99
	LatitudeAdjust int
	Timezone       string
}

// NoQuery leaves every calculation parameter to the API's defaults.
var NoQuery = Query{Method: -1, School: -1, LatitudeAdjust: -1}

func (q Query) values() url.Values {
	params := url.Values{}
	if q.Method >= 0 {
		params.Set("method", strconv.Itoa(q.Method))
	}
	if q.School >= 0 {
		params.Set("school", strconv.Itoa(q.School))
	}
	if q.MethodSettings != "" {
		params.Set("methodSettings", q.MethodSettings)
	}
	if q.LatitudeAdjust >= 0 {
		params.Set("latitudeAdjustmentMethod", strconv.Itoa(q.LatitudeAdjust))
	}
	if q.Timezone != "" {
		params.Set("timezonestring", q.Timezone)
	}
	return params
}

// FetchByCoordinates fetches prayer times for the given date and coordinates.
func (c *Client) FetchByCoordinates(ctx context.Context, date time.Time, lat, lon float64, q Query) (*Response, error) {
	endpoint := fmt.Sprintf("%s/timings/%s", c.BaseURL, date.Format("02-01-2006"))

	params := q.values()
	params.Set("latitude", fmt.Sprintf("%f", lat))
	params.Set("longitude", fmt.Sprintf("%f", lon))

	return c.doRequest(ctx, endpoint, params)
}

// FetchByCity fetches prayer times for the given date, city, and country.
func (c *Client) FetchByCity(ctx context.Context, date time.Time, city, country string, q Query) (*Response, error) {
	endpoint := fmt.Sprintf("%s/timingsByCity/%s", c.BaseURL, date.Format("02-01-2006"))

	params := q.values()
	params.Set("city", city)
	params.Set("country", country)

	return c.doRequest(ctx, endpoint, params)
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	backoff := c.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	b := retry.WithMaxRetries(c.Retries, retry.NewExponential(backoff))
	return retry.DoValue(ctx, b, func(ctx context.Context) (*Response, error) {
		return c.doOnce(ctx, reqURL)
	})
}

func (c *Client) doOnce(ctx context.Context, reqURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build API request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, retry.RetryableError(fmt.Errorf("API request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.RetryableError(err)
		}
		return nil, err
	}

	var apiResp Response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode API response: %w", err)
	}

	if apiResp.Code != 200 {
		return nil, fmt.Errorf("API error: code=%d status=%s", apiResp.Code, apiResp.Status)
	}

	return &apiResp, nil
}
