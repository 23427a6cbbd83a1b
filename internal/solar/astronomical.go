package solar

import (
	"context"
	"fmt"
	"math"
	"time"

	adhan "github.com/hablullah/go-prayer"

	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

// rawTwilight is outside go-prayer's named high latitude methods, so the
// library returns twilight unadjusted and the rule in Params applies here.
const rawTwilight adhan.HighLatitudeMethod = -1

// Astronomical computes prayer times locally with go-prayer. It needs no
// network and holds no state.
type Astronomical struct{}

// NewAstronomical returns a local calculator.
func NewAstronomical() *Astronomical {
	return &Astronomical{}
}

// events holds each computed instant. A zero time marks an event the sun
// never reaches on that day.
type events struct {
	fajr, sunrise, dhuhr, asr, sunset, maghrib, isha time.Time
}

// Calculate implements Calculator.
func (a *Astronomical) Calculate(ctx context.Context, date time.Time, at Coordinates, p Params) (Times, error) {
	if err := ctx.Err(); err != nil {
		return Times{}, err
	}
	if at.Latitude < -90 || at.Latitude > 90 {
		return Times{}, fmt.Errorf("latitude %v out of range", at.Latitude)
	}
	if at.Longitude < -180 || at.Longitude > 180 {
		return Times{}, fmt.Errorf("longitude %v out of range", at.Longitude)
	}
	zone := at.Zone
	if zone == nil {
		zone = time.UTC
	}

	y, m, d := date.Date()
	noon := time.Date(y, m, d, 12, 0, 0, 0, zone)
	cfg := libraryConfig(at, p)

	raw, err := adhan.Calculate(cfg, noon)
	if err != nil {
		return Times{}, fmt.Errorf("calculate %s: %w", noon.Format(prayer.DateLayout), err)
	}
	ev := events{
		fajr:    raw.Fajr,
		sunrise: raw.Sunrise,
		dhuhr:   raw.Zuhr,
		asr:     raw.Asr,
		sunset:  raw.Maghrib,
		maghrib: raw.Maghrib,
		isha:    raw.Isha,
	}

	riseSet := riseSetAngle(at.Elevation)
	if p.MaghribAngle > riseSet {
		// The evening side of a depression angle is what go-prayer reports
		// as Isha, so a second pass with the Maghrib angle yields it.
		dusk := cfg
		dusk.IshaAngle = p.MaghribAngle
		alt, err := adhan.Calculate(dusk, noon)
		if err != nil {
			return Times{}, fmt.Errorf("calculate %s: %w", noon.Format(prayer.DateLayout), err)
		}
		ev.maghrib = alt.Isha
	}
	if p.IshaInterval > 0 {
		ev.isha = time.Time{}
	}

	if p.HighLatitude != "" && p.HighLatitude != HighLatNone {
		ev = adjustHighLatitudes(ev, p, riseSet)
	}
	if p.IshaInterval > 0 && !ev.maghrib.IsZero() {
		ev.isha = ev.maghrib.Add(time.Duration(p.IshaInterval * float64(time.Minute)))
	}

	out := Times{
		Date:        time.Date(y, m, d, 0, 0, 0, 0, zone),
		Prayers:     make(map[string]time.Time, len(prayer.Names)),
		Unavailable: make(map[string]error),
	}
	for _, e := range []struct {
		name string
		at   time.Time
	}{
		{prayer.Fajr, ev.fajr},
		{prayer.Sunrise, ev.sunrise},
		{prayer.Dhuhr, ev.dhuhr},
		{prayer.Asr, ev.asr},
		{prayer.Maghrib, ev.maghrib},
		{prayer.Isha, ev.isha},
	} {
		if e.at.IsZero() {
			out.Unavailable[e.name] = fmt.Errorf("%w: sun does not reach the %s angle", ErrUnavailable, e.name)
			continue
		}
		t := e.at.Round(time.Minute).In(zone)
		// Records hold wall-clock times for a single date.
		if ty, tm, td := t.Date(); ty != y || tm != m || td != d {
			out.Unavailable[e.name] = fmt.Errorf("%w: %s falls on %s", ErrUnavailable, e.name, t.Format(prayer.DateLayout))
			continue
		}
		out.Prayers[e.name] = t
	}

	return out, nil
}

// libraryConfig maps p onto go-prayer. Twilight comes back raw and Isha is
// always angle based; intervals are applied by the caller.
func libraryConfig(at Coordinates, p Params) adhan.Config {
	cfg := adhan.Config{
		Latitude:           at.Latitude,
		Longitude:          at.Longitude,
		Elevation:          math.Max(at.Elevation, 0),
		FajrAngle:          depression(p.FajrAngle),
		IshaAngle:          depression(p.IshaAngle),
		AsrConvention:      adhan.Shafii,
		HighLatitudeMethod: rawTwilight,
		PreciseToSeconds:   true,
	}
	if p.Asr == AsrHanafi {
		cfg.AsrConvention = adhan.Hanafi
	}
	return cfg
}

// depression keeps a zero angle meaning the horizon. go-prayer reads zero as
// "use the method default".
func depression(angle float64) float64 {
	if angle == 0 {
		return 1e-9
	}
	return angle
}

// adjustHighLatitudes caps Fajr, Maghrib and Isha at a portion of the night.
func adjustHighLatitudes(ev events, p Params, riseSet float64) events {
	if ev.sunrise.IsZero() || ev.sunset.IsZero() {
		return ev
	}
	night := 24*time.Hour - ev.sunset.Sub(ev.sunrise)
	portion := func(angle float64) time.Duration {
		return time.Duration(nightPortion(p.HighLatitude, angle) * float64(night))
	}

	ev.fajr = capBefore(ev.fajr, ev.sunrise, portion(p.FajrAngle))
	if p.IshaInterval <= 0 {
		ev.isha = capAfter(ev.isha, ev.sunset, portion(p.IshaAngle))
	}
	if p.MaghribAngle > riseSet {
		ev.maghrib = capAfter(ev.maghrib, ev.sunset, portion(p.MaghribAngle))
	}
	return ev
}

// capBefore keeps t within limit before base.
func capBefore(t, base time.Time, limit time.Duration) time.Time {
	if t.IsZero() || t.After(base) || base.Sub(t) > limit {
		return base.Add(-limit)
	}
	return t
}

// capAfter keeps t within limit after base.
func capAfter(t, base time.Time, limit time.Duration) time.Time {
	if t.IsZero() || t.Before(base) || t.Sub(base) > limit {
		return base.Add(limit)
	}
	return t
}

func nightPortion(rule HighLatitudeRule, angle float64) float64 {
	switch rule {
	case HighLatAngleBased:
		return angle / 60
	case HighLatOneSeventh:
		return 1.0 / 7
	default:
		return 0.5
	}
}

// riseSetAngle is the depression of apparent sunrise and sunset, the same
// refraction and elevation correction go-prayer applies.
func riseSetAngle(elevation float64) float64 {
	if elevation < 0 {
		elevation = 0
	}
	return 0.833333 + 0.0347*math.Sqrt(elevation)
}
