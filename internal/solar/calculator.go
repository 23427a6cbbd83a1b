// Package solar computes the six daily prayer times from the position of the sun.
//
// The Calculator interface is the seam the rest of the module depends on. The
// package ships Astronomical, a local implementation on top of
// github.com/hablullah/go-prayer, and the internal/api package provides a
// remote implementation backed by the Al Adhan service.
package solar

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned, per prayer, when a time does not exist for the
// date and location (for example Isha during polar summer).
var ErrUnavailable = errors.New("prayer time unavailable")

// Coordinates is a point on Earth plus the timezone its wall clock follows.
type Coordinates struct {
	Latitude  float64
	Longitude float64
	Elevation float64 // meters above sea level
	Zone      *time.Location
}

// Times is the result of one calculation. Prayers holds an instant for every
// prayer that could be computed; every other prayer has an entry in
// Unavailable explaining why.
type Times struct {
	Date        time.Time
	Prayers     map[string]time.Time
	Unavailable map[string]error
	// HijriDate is filled by calculators that know it; empty otherwise.
	HijriDate string
}

// Calculator turns a date, a location and method parameters into prayer times.
// Implementations must be safe for concurrent use.
type Calculator interface {
	Calculate(ctx context.Context, date time.Time, at Coordinates, p Params) (Times, error)
}
