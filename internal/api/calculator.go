package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/settings"
	"github.com/smokyabdulrahman/masjid-times/internal/solar"
)

// customMethod tells the API to read methodSettings instead of a preset.
const customMethod = 99

// Calculator is a solar.Calculator backed by the Al Adhan timings endpoint.
// Every request sends the angles explicitly so remote and local results
// follow the same settings.
type Calculator struct {
	Client *Client
}

// NewCalculator returns a Calculator using c.
func NewCalculator(c *Client) *Calculator {
	return &Calculator{Client: c}
}

// Calculate implements solar.Calculator.
func (a *Calculator) Calculate(ctx context.Context, date time.Time, at solar.Coordinates, p solar.Params) (solar.Times, error) {
	zone := at.Zone
	if zone == nil {
		zone = time.UTC
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, zone)

	resp, err := a.Client.FetchByCoordinates(ctx, day, at.Latitude, at.Longitude, QueryFor(p, zone))
	if err != nil {
		return solar.Times{}, err
	}

	out := solar.Times{
		Date:        day,
		Prayers:     make(map[string]time.Time, len(prayer.Names)),
		Unavailable: make(map[string]error),
		HijriDate:   resp.Data.Date.Hijri.Format(),
	}
	for _, name := range prayer.Names {
		raw := resp.Data.Timings.Get(name)
		if raw == "" {
			out.Unavailable[name] = solar.ErrUnavailable
			continue
		}
		t, err := prayer.ParseHHMM(raw, day, zone)
		if err != nil {
			out.Unavailable[name] = errors.Join(solar.ErrUnavailable, err)
			continue
		}
		out.Prayers[name] = t
	}
	return out, nil
}

// QueryFor translates calculation parameters into a custom-method query.
func QueryFor(p solar.Params, zone *time.Location) Query {
	maghrib := "null"
	if p.MaghribAngle > 0 {
		maghrib = strconv.FormatFloat(p.MaghribAngle, 'f', -1, 64)
	}
	isha := strconv.FormatFloat(p.IshaAngle, 'f', -1, 64)
	if p.IshaInterval > 0 {
		isha = strconv.FormatFloat(p.IshaInterval, 'f', -1, 64) + " min"
	}

	q := Query{
		Method:         customMethod,
		School:         0,
		MethodSettings: strconv.FormatFloat(p.FajrAngle, 'f', -1, 64) + "," + maghrib + "," + isha,
		LatitudeAdjust: -1,
	}
	if p.Asr == solar.AsrHanafi {
		q.School = 1
	}
	switch p.HighLatitude {
	case solar.HighLatNightMiddle:
		q.LatitudeAdjust = 1
	case solar.HighLatOneSeventh:
		q.LatitudeAdjust = 2
	case solar.HighLatAngleBased:
		q.LatitudeAdjust = 3
	}
	if zone != nil && zone != time.Local {
		q.Timezone = zone.String()
	}
	return q
}

// LocateCity resolves a city to coordinates and a timezone using the
// metadata of a timingsByCity response.
func (c *Client) LocateCity(ctx context.Context, city, country string, today time.Time) (settings.Location, error) {
	resp, err := c.FetchByCity(ctx, today, city, country, NoQuery)
	if err != nil {
		return settings.Location{}, err
	}
	meta := resp.Data.Meta
	loc := settings.Location{
		Latitude:  meta.Latitude,
		Longitude: meta.Longitude,
		City:      city,
		Country:   country,
		Timezone:  meta.Timezone,
	}
	if err := loc.Validate(); err != nil {
		return settings.Location{}, fmt.Errorf("unusable location for %s, %s: %w", city, country, err)
	}
	return loc, nil
}
