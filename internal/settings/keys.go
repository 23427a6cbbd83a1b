package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
	"github.com/smokyabdulrahman/masjid-times/internal/solar"
)

// ValidKeys lists all keys that can be set via `config set`.
// Per-prayer keys take the form adjust.<prayer> and iqamah.<prayer>.
var ValidKeys = []string{
	"latitude", "longitude", "elevation",
	"city", "country", "timezone",
	"method", "fajr_angle", "isha_angle", "isha_interval", "maghrib_angle",
	"asr_method", "high_latitude", "hijri_offset",
	"adjust.<prayer>", "iqamah.<prayer>",
}

// LocationKeys are the keys whose change moves the location.
var LocationKeys = map[string]bool{
	"latitude": true, "longitude": true, "elevation": true,
	"city": true, "country": true, "timezone": true,
}

// Set sets a key to the given value.
// It validates the key name and parses the value into the correct type.
func (s *Settings) Set(key, value string) error {
	if name, ok := strings.CutPrefix(key, "adjust."); ok {
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid adjustment %q: must be an integer number of minutes", value)
		}
		if v < -120 || v > 120 {
			return fmt.Errorf("invalid adjustment %q: must be between -120 and 120", value)
		}
		return s.Calculation.Adjustments.Set(name, v)
	}
	if name, ok := strings.CutPrefix(key, "iqamah."); ok {
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid iqamah delay %q: must be an integer number of minutes", value)
		}
		if v < 0 || v > 180 {
			return fmt.Errorf("invalid iqamah delay %q: must be between 0 and 180", value)
		}
		return s.Calculation.IqamahDelays.Set(name, v)
	}

	switch key {
	case "latitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: must be a number", value)
		}
		if v < -90 || v > 90 {
			return fmt.Errorf("invalid latitude %q: must be between -90 and 90", value)
		}
		s.Location.Latitude = v
	case "longitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: must be a number", value)
		}
		if v < -180 || v > 180 {
			return fmt.Errorf("invalid longitude %q: must be between -180 and 180", value)
		}
		s.Location.Longitude = v
	case "elevation":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < -500 || v > 9000 {
			return fmt.Errorf("invalid elevation %q: must be meters between -500 and 9000", value)
		}
		s.Location.Elevation = v
	case "city":
		s.Location.City = value
	case "country":
		s.Location.Country = value
	case "timezone":
		l := s.Location
		l.Timezone = value
		if _, err := l.Zone(); err != nil {
			return err
		}
		s.Location.Timezone = value
	case "method":
		c, err := s.Calculation.WithMethod(value)
		if err != nil {
			return err
		}
		s.Calculation = c
	case "fajr_angle", "isha_angle", "maghrib_angle":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 || v > 30 {
			return fmt.Errorf("invalid %s %q: must be degrees between 0 and 30", key, value)
		}
		switch key {
		case "fajr_angle":
			s.Calculation.FajrAngle = v
		case "isha_angle":
			s.Calculation.IshaAngle = v
		default:
			s.Calculation.MaghribAngle = v
		}
		// Hand-tuned angles no longer match a published method.
		s.Calculation.Method = solar.MethodCustom
	case "isha_interval":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 || v > 180 {
			return fmt.Errorf("invalid isha_interval %q: must be minutes between 0 and 180", value)
		}
		s.Calculation.IshaInterval = v
		s.Calculation.Method = solar.MethodCustom
	case "asr_method":
		v, err := solar.ParseAsrMethod(value)
		if err != nil {
			return err
		}
		s.Calculation.AsrMethod = v
	case "high_latitude":
		v, err := solar.ParseHighLatitudeRule(value)
		if err != nil {
			return err
		}
		s.Calculation.HighLatitude = v
	case "hijri_offset":
		v, err := strconv.Atoi(value)
		if err != nil || v < -3 || v > 3 {
			return fmt.Errorf("invalid hijri_offset %q: must be an integer between -3 and 3", value)
		}
		s.Calculation.HijriOffset = v
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

// Get returns the string value of a key.
func (s *Settings) Get(key string) (string, error) {
	if name, ok := strings.CutPrefix(key, "adjust."); ok {
		if !isPrayerName(name) {
			return "", fmt.Errorf("unknown prayer %q", name)
		}
		return strconv.Itoa(s.Calculation.Adjustments.For(name)), nil
	}
	if name, ok := strings.CutPrefix(key, "iqamah."); ok {
		if !isPrayerName(name) {
			return "", fmt.Errorf("unknown prayer %q", name)
		}
		return strconv.Itoa(s.Calculation.IqamahDelays.For(name)), nil
	}

	c := s.Calculation
	switch key {
	case "latitude":
		return formatFloat(s.Location.Latitude), nil
	case "longitude":
		return formatFloat(s.Location.Longitude), nil
	case "elevation":
		return formatFloat(s.Location.Elevation), nil
	case "city":
		return s.Location.City, nil
	case "country":
		return s.Location.Country, nil
	case "timezone":
		return s.Location.Timezone, nil
	case "method":
		return c.Method, nil
	case "fajr_angle":
		return formatFloat(c.FajrAngle), nil
	case "isha_angle":
		return formatFloat(c.IshaAngle), nil
	case "isha_interval":
		return formatFloat(c.IshaInterval), nil
	case "maghrib_angle":
		return formatFloat(c.MaghribAngle), nil
	case "asr_method":
		return string(c.AsrMethod), nil
	case "high_latitude":
		return string(c.HighLatitude), nil
	case "hijri_offset":
		return strconv.Itoa(c.HijriOffset), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// DisplayKeys expands the per-prayer key patterns for listing.
func DisplayKeys() []string {
	var keys []string
	for _, k := range ValidKeys {
		prefix, ok := strings.CutSuffix(k, "<prayer>")
		if !ok {
			keys = append(keys, k)
			continue
		}
		for _, name := range prayer.Names {
			keys = append(keys, prefix+strings.ToLower(name))
		}
	}
	return keys
}

func isPrayerName(name string) bool {
	for _, n := range prayer.Names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
