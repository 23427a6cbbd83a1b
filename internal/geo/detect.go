// Package geo resolves the user's location from their public IP address.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/smokyabdulrahman/masjid-times/internal/settings"
)

// ErrLocationUnresolved wraps every detection failure.
var ErrLocationUnresolved = errors.New("location unresolved")

// Location holds geographic coordinates detected from the user's IP.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
}

// Settings converts the detected location into a settings location.
func (l Location) Settings() settings.Location {
	return settings.Location{
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		City:      l.City,
		Country:   l.Country,
		Timezone:  l.Timezone,
	}
}

// Provider detects the current location.
type Provider interface {
	Detect(ctx context.Context) (Location, error)
}

// ipAPIResponse maps the response from ip-api.com.
type ipAPIResponse struct {
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	City     string  `json:"city"`
	Country  string  `json:"country"`
	Timezone string  `json:"timezone"`
}

// DefaultURL is the ip-api.com endpoint. It is free and needs no API key.
const DefaultURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,country,timezone"

// IPAPI detects the location with ip-api.com. Network errors and 5xx
// responses are retried with exponential backoff.
type IPAPI struct {
	URL     string
	Client  *http.Client
	Retries uint64
	Backoff time.Duration
}

// NewIPAPI returns a provider for url, or DefaultURL when url is empty.
func NewIPAPI(url string) *IPAPI {
	if url == "" {
		url = DefaultURL
	}
	return &IPAPI{
		URL:     url,
		Client:  &http.Client{Timeout: 5 * time.Second},
		Retries: 2,
		Backoff: 500 * time.Millisecond,
	}
}

// Detect implements Provider.
func (p *IPAPI) Detect(ctx context.Context) (Location, error) {
	var loc Location
	backoff := retry.WithMaxRetries(p.Retries, retry.NewExponential(p.Backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		loc, err = p.detectOnce(ctx)
		return err
	})
	if err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrLocationUnresolved, err)
	}
	return loc, nil
}

func (p *IPAPI) detectOnce(ctx context.Context) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request failed: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return Location{}, retry.RetryableError(fmt.Errorf("geolocation request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Location{}, retry.RetryableError(fmt.Errorf("geolocation API returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Location{}, fmt.Errorf("failed to decode geolocation response: %w", err)
	}

	if result.Status != "success" {
		return Location{}, fmt.Errorf("geolocation failed: %s", result.Message)
	}

	return Location{
		Latitude:  result.Lat,
		Longitude: result.Lon,
		City:      result.City,
		Country:   result.Country,
		Timezone:  result.Timezone,
	}, nil
}
