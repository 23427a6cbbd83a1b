// Package config holds runtime configuration: which cache backend to use,
// logging, background sync and the optional outer surfaces.
//
// Values come from environment variables (optionally seeded from a .env file)
// and an optional YAML file. User preferences such as location and method live
// in the settings package instead.
package config

import "time"

// Config is the root runtime configuration.
type Config struct {
	Calculator CalculatorConfig `yaml:"calculator"`
	Cache      CacheConfig      `yaml:"cache"`
	Log        LogConfig        `yaml:"log"`
	Sync       SyncConfig       `yaml:"sync"`
	Trigger    TriggerConfig    `yaml:"trigger"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	HTTP       HTTPConfig       `yaml:"http"`
	Geo        GeoConfig        `yaml:"geo"`
	Display    DisplayConfig    `yaml:"display"`
}

// CalculatorConfig selects the local astronomical calculator or the Al Adhan API.
type CalculatorConfig struct {
	Kind       string        `yaml:"kind"        env:"CALCULATOR"         env-default:"local"`
	AlAdhanURL string        `yaml:"aladhan_url" env:"ALADHAN_URL"        env-default:"https://api.aladhan.com/v1"`
	Timeout    time.Duration `yaml:"timeout"     env:"CALCULATOR_TIMEOUT" env-default:"10s"`
}

// CacheConfig selects and configures the prayer-time cache backend.
type CacheConfig struct {
	Backend        string `yaml:"backend"         env:"CACHE_BACKEND"   env-default:"file"`
	Dir            string `yaml:"dir"             env:"CACHE_DIR"`
	DSN            string `yaml:"dsn"             env:"CACHE_DSN"`
	RedisAddr      string `yaml:"redis_addr"      env:"REDIS_ADDR"      env-default:"localhost:6379"`
	RedisPassword  string `yaml:"redis_password"  env:"REDIS_PASSWORD"`
	RedisDB        int    `yaml:"redis_db"        env:"REDIS_DB"        env-default:"0"`
	RedisNamespace string `yaml:"redis_namespace" env:"REDIS_NAMESPACE" env-default:"masjid-times:"`

	// LRUSize bounds the in-memory layer; 0 disables it.
	LRUSize int `yaml:"lru_size" env:"CACHE_LRU_SIZE" env-default:"400"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"       env:"LOG_LEVEL"       env-default:"info"`
	File       string `yaml:"file"        env:"LOG_FILE"`
	Console    bool   `yaml:"console"     env:"LOG_CONSOLE"     env-default:"false"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"10"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"3"`
}

// SyncConfig drives the background refresh.
type SyncConfig struct {
	Interval      time.Duration `yaml:"interval"       env:"SYNC_INTERVAL"    env-default:"6h"`
	WindowDays    int           `yaml:"window_days"    env:"SYNC_WINDOW_DAYS" env-default:"14"`
	PreloadMonths int           `yaml:"preload_months" env:"PRELOAD_MONTHS"   env-default:"2"`

	// ProbeURL is polled to detect connectivity; empty means always online.
	ProbeURL      string        `yaml:"probe_url"      env:"SYNC_PROBE_URL"`
	ProbeInterval time.Duration `yaml:"probe_interval" env:"SYNC_PROBE_INTERVAL" env-default:"30s"`
}

// TriggerConfig controls call-to-prayer events.
type TriggerConfig struct {
	Window         time.Duration `yaml:"window"          env:"TRIGGER_WINDOW"          env-default:"30s"`
	IncludeSunrise bool          `yaml:"include_sunrise" env:"TRIGGER_INCLUDE_SUNRISE" env-default:"false"`
	Muted          bool          `yaml:"muted"           env:"TRIGGER_MUTED"           env-default:"false"`
}

// MQTTConfig publishes trigger events when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker"    env:"MQTT_BROKER"`
	ClientID string `yaml:"client_id" env:"MQTT_CLIENT_ID" env-default:"masjid-times"`
	Username string `yaml:"username"  env:"MQTT_USERNAME"`
	Password string `yaml:"password"  env:"MQTT_PASSWORD"`
	Topic    string `yaml:"topic"     env:"MQTT_TOPIC"     env-default:"masjid/prayer"`
	QoS      byte   `yaml:"qos"       env:"MQTT_QOS"       env-default:"1"`
}

// HTTPConfig holds the `serve` listener settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"             env:"HTTP_ADDR"             env-default:"127.0.0.1:8080"`
	AllowedOrigins  string        `yaml:"allowed_origins"  env:"CORS_ALLOWED_ORIGINS"  env-default:"*"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// GeoConfig controls IP geolocation.
type GeoConfig struct {
	Enabled  bool          `yaml:"enabled"   env:"GEO_ENABLED"   env-default:"true"`
	Endpoint string        `yaml:"endpoint"  env:"GEO_ENDPOINT"  env-default:"http://ip-api.com/json/?fields=status,message,country,city,lat,lon,timezone"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"GEO_CACHE_TTL" env-default:"24h"`
}

// DisplayConfig holds output preferences for the CLI.
type DisplayConfig struct {
	TimeFormat string `yaml:"time_format" env:"TIME_FORMAT" env-default:"24h"`

	// Prayers is a comma-separated filter, e.g. "Fajr,Maghrib".
	Prayers string `yaml:"prayers" env:"PRAYERS"`
}
