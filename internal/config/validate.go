package config

import (
	"fmt"
	"strings"

	"github.com/smokyabdulrahman/masjid-times/internal/prayer"
)

// Cache backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Calculator kinds.
const (
	CalculatorLocal   = "local"
	CalculatorAlAdhan = "aladhan"
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	switch c.Calculator.Kind {
	case CalculatorLocal, CalculatorAlAdhan:
	default:
		return fmt.Errorf("calculator.kind must be %q or %q (got %q)", CalculatorLocal, CalculatorAlAdhan, c.Calculator.Kind)
	}

	if err := c.Cache.validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Sync.validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if c.Trigger.Window <= 0 {
		return fmt.Errorf("trigger.window must be > 0 (got %s)", c.Trigger.Window)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2 (got %d)", c.MQTT.QoS)
	}

	if c.Display.TimeFormat != "12h" && c.Display.TimeFormat != "24h" {
		return fmt.Errorf("display.time_format must be \"12h\" or \"24h\" (got %q)", c.Display.TimeFormat)
	}
	if _, err := c.Display.PrayerFilter(); err != nil {
		return fmt.Errorf("display.prayers: %w", err)
	}

	return nil
}

func (c *CacheConfig) validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite:
	case BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.LRUSize < 0 {
		return fmt.Errorf("lru_size must be >= 0 (got %d)", c.LRUSize)
	}
	return nil
}

func (s *SyncConfig) validate() error {
	if s.Interval <= 0 {
		return fmt.Errorf("interval must be > 0 (got %s)", s.Interval)
	}
	if s.WindowDays < 1 {
		return fmt.Errorf("window_days must be >= 1 (got %d)", s.WindowDays)
	}
	if s.PreloadMonths < 0 || s.PreloadMonths > 24 {
		return fmt.Errorf("preload_months must be between 0 and 24 (got %d)", s.PreloadMonths)
	}
	if s.ProbeURL != "" && s.ProbeInterval <= 0 {
		return fmt.Errorf("probe_interval must be > 0 (got %s)", s.ProbeInterval)
	}
	return nil
}

// PrayerFilter parses Prayers into canonical names. An empty filter means
// all prayers and returns nil.
func (d DisplayConfig) PrayerFilter() ([]string, error) {
	if strings.TrimSpace(d.Prayers) == "" {
		return nil, nil
	}
	var names []string
	for _, n := range strings.Split(d.Prayers, ",") {
		name, ok := canonicalPrayer(strings.TrimSpace(n))
		if !ok {
			return nil, fmt.Errorf("invalid prayer name %q", n)
		}
		names = append(names, name)
	}
	return names, nil
}

func canonicalPrayer(s string) (string, bool) {
	for _, n := range prayer.Names {
		if strings.EqualFold(n, s) {
			return n, true
		}
	}
	return "", false
}
