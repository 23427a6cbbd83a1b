// Package settings holds the user's location and calculation preferences.
//
// Settings are persisted as TOML at ~/.config/prayer-times/settings.toml
// (XDG-compliant). A Store hands out immutable snapshots tagged with a
// generation number that increases on every change, so work started under an
// older snapshot can tell that it is stale.
package settings

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // timezone names must resolve on hosts without zoneinfo

	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/solar"
)

// Location is where prayer times are computed for.
type Location struct {
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
	Elevation float64 `toml:"elevation,omitempty"`
	City      string  `toml:"city,omitempty"`
	Country   string  `toml:"country,omitempty"`
	// Timezone is an IANA name such as "Asia/Kuala_Lumpur".
	Timezone string `toml:"timezone,omitempty"`
}

// DefaultLocation is used until geolocation resolves or the user sets one.
func DefaultLocation() Location {
	return Location{
		Latitude:  3.1390,
		Longitude: 101.6869,
		Elevation: 50,
		City:      "Kuala Lumpur",
		Country:   "Malaysia",
		Timezone:  "Asia/Kuala_Lumpur",
	}
}

// Label is the human-readable name stored on each record.
func (l Location) Label() string {
	if l.City != "" && l.Country != "" {
		return l.City + ", " + l.Country
	}
	if l.City != "" {
		return l.City
	}
	return fmt.Sprintf("%.4f, %.4f", l.Latitude, l.Longitude)
}

// Zone loads the location's timezone. An empty Timezone means the host's
// local zone.
func (l Location) Zone() (*time.Location, error) {
	if l.Timezone == "" {
		return time.Local, nil
	}
	z, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", l.Timezone, err)
	}
	return z, nil
}

// Validate checks coordinate ranges and the timezone name.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("invalid latitude %v: must be between -90 and 90", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("invalid longitude %v: must be between -180 and 180", l.Longitude)
	}
	if _, err := l.Zone(); err != nil {
		return err
	}
	return nil
}

// Offsets holds a whole number of minutes per prayer.
type Offsets struct {
	Fajr    int `toml:"fajr" json:"fajr"`
	Sunrise int `toml:"sunrise" json:"sunrise"`
	Dhuhr   int `toml:"dhuhr" json:"dhuhr"`
	Asr     int `toml:"asr" json:"asr"`
	Maghrib int `toml:"maghrib" json:"maghrib"`
	Isha    int `toml:"isha" json:"isha"`
}

// For returns the offset for the named prayer, matched case-insensitively.
func (o Offsets) For(name string) int {
	if p := o.field(name); p != nil {
		return *p
	}
	return 0
}

// Set changes the offset for the named prayer.
func (o *Offsets) Set(name string, minutes int) error {
	p := o.field(name)
	if p == nil {
		return fmt.Errorf("unknown prayer %q", name)
	}
	*p = minutes
	return nil
}

func (o *Offsets) field(name string) *int {
	switch strings.ToLower(name) {
	case "fajr":
		return &o.Fajr
	case "sunrise":
		return &o.Sunrise
	case "dhuhr":
		return &o.Dhuhr
	case "asr":
		return &o.Asr
	case "maghrib":
		return &o.Maghrib
	case "isha":
		return &o.Isha
	}
	return nil
}

// Calculation selects the method and the manual corrections.
type Calculation struct {
	Method       string                 `toml:"method"`
	FajrAngle    float64                `toml:"fajr_angle"`
	IshaAngle    float64                `toml:"isha_angle"`
	IshaInterval float64                `toml:"isha_interval,omitempty"`
	MaghribAngle float64                `toml:"maghrib_angle"`
	AsrMethod    solar.AsrMethod        `toml:"asr_method"`
	HighLatitude solar.HighLatitudeRule `toml:"high_latitude"`
	// Adjustments are added to the computed times.
	Adjustments Offsets `toml:"adjustments"`
	// IqamahDelays are minutes between the call to prayer and the congregation.
	IqamahDelays Offsets `toml:"iqamah_delays"`
	// HijriOffset shifts the tabular Hijri date to match local moon sighting.
	HijriOffset int `toml:"hijri_offset,omitempty"`
}

// DefaultCalculation is Umm Al-Qura with the standard Asr rule.
func DefaultCalculation() Calculation {
	c, _ := Calculation{
		AsrMethod:    solar.AsrStandard,
		HighLatitude: solar.HighLatAngleBased,
		IqamahDelays: Offsets{Fajr: 20, Dhuhr: 10, Asr: 10, Maghrib: 5, Isha: 15},
	}.WithMethod("Makkah")
	return c
}

// WithMethod returns a copy using the named method's angles. The Custom
// method keeps the current angles.
func (c Calculation) WithMethod(id string) (Calculation, error) {
	m, ok := solar.LookupMethod(id)
	if !ok {
		return c, fmt.Errorf("invalid method %q; valid methods: %s", id, strings.Join(solar.MethodIDs(), ", "))
	}
	c.Method = m.ID
	if m.ID == solar.MethodCustom {
		return c, nil
	}
	c.FajrAngle = m.Params.FajrAngle
	c.IshaAngle = m.Params.IshaAngle
	c.IshaInterval = m.Params.IshaInterval
	c.MaghribAngle = m.Params.MaghribAngle
	return c, nil
}

// Params converts the settings into calculator input.
func (c Calculation) Params() solar.Params {
	return solar.Params{
		FajrAngle:    c.FajrAngle,
		IshaAngle:    c.IshaAngle,
		IshaInterval: c.IshaInterval,
		MaghribAngle: c.MaghribAngle,
		Asr:          c.AsrMethod,
		HighLatitude: c.HighLatitude,
	}
}

// Validate checks the method name and angle ranges.
func (c Calculation) Validate() error {
	if _, ok := solar.LookupMethod(c.Method); !ok {
		return fmt.Errorf("invalid method %q", c.Method)
	}
	for name, a := range map[string]float64{"fajr_angle": c.FajrAngle, "isha_angle": c.IshaAngle, "maghrib_angle": c.MaghribAngle} {
		if a < 0 || a > 30 {
			return fmt.Errorf("invalid %s %v: must be between 0 and 30", name, a)
		}
	}
	if c.IshaInterval < 0 || c.IshaInterval > 180 {
		return fmt.Errorf("invalid isha_interval %v: must be between 0 and 180 minutes", c.IshaInterval)
	}
	if c.IshaInterval == 0 && c.IshaAngle == 0 {
		return errors.New("isha needs either isha_angle or isha_interval")
	}
	if _, err := solar.ParseAsrMethod(string(c.AsrMethod)); err != nil {
		return err
	}
	if c.HighLatitude != "" {
		if _, err := solar.ParseHighLatitudeRule(string(c.HighLatitude)); err != nil {
			return err
		}
	}
	for _, name := range prayer.Names {
		if v := c.Adjustments.For(name); v < -120 || v > 120 {
			return fmt.Errorf("invalid adjustment for %s: %d minutes is outside +/-120", name, v)
		}
		if v := c.IqamahDelays.For(name); v < 0 || v > 180 {
			return fmt.Errorf("invalid iqamah delay for %s: %d minutes is outside 0..180", name, v)
		}
	}
	return nil
}

// Settings is the complete persisted preference set.
type Settings struct {
	Location    Location    `toml:"location"`
	Calculation Calculation `toml:"calculation"`
}

// Defaults returns Settings with every default applied.
func Defaults() Settings {
	return Settings{
		Location:    DefaultLocation(),
		Calculation: DefaultCalculation(),
	}
}

// Validate checks both halves.
func (s Settings) Validate() error {
	if err := s.Location.Validate(); err != nil {
		return err
	}
	return s.Calculation.Validate()
}

// Snapshot is an immutable view of the settings at one generation.
type Snapshot struct {
	Settings
	Generation uint64
}

// Fingerprint is a short deterministic hash of everything that affects the
// computed times. Records carry it so a cache written under other settings,
// possibly by an earlier process, is recognised as stale.
func (s Settings) Fingerprint() string {
	l, c := s.Location, s.Calculation
	raw := fmt.Sprintf("%.6f|%.6f|%.1f|%s|%s|%.3f|%.3f|%.3f|%.3f|%s|%s|%v|%v|%d",
		l.Latitude, l.Longitude, l.Elevation, l.Timezone,
		c.Method, c.FajrAngle, c.IshaAngle, c.IshaInterval, c.MaghribAngle,
		c.AsrMethod, c.HighLatitude, c.Adjustments, c.IqamahDelays, c.HijriOffset)
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h[:8])
}
