// Package config loads daemon settings. Later sources override earlier ones:
// built-in defaults, then the YAML file named by --config, then HEATMON_*
// environment variables, then command-line flags that were explicitly set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/heatmon/internal/gpio"
	"github.com/sweeney/heatmon/internal/logic"
	"github.com/sweeney/heatmon/internal/mqtt"
	"github.com/sweeney/heatmon/internal/wire"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "HEATMON_"

// Config holds daemon settings.
type Config struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	MQTTBuffer  int    `yaml:"mqtt_buffer"`

	HTTPAddr string `yaml:"http_addr"`

	// RedisAddr enables the variable mirror when set.
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisKey      string        `yaml:"redis_key"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`

	GPIOChip string             `yaml:"gpio_chip"`
	Zones    []logic.ZoneConfig `yaml:"zones"`

	Poll      time.Duration `yaml:"poll"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	Sync      time.Duration `yaml:"sync"`

	HistoryCapacity int              `yaml:"history_capacity"`
	BufferSize      int              `yaml:"buffer_size"`
	Hysteresis      logic.Hysteresis `yaml:"hysteresis"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the settings of a stock three-zone controller.
func Default() *Config {
	return &Config{
		Broker:      "tcp://192.168.1.200:1883",
		TopicPrefix: mqtt.DefaultTopicPrefix,
		MQTTBuffer:  mqtt.DefaultBufferSize,
		HTTPAddr:    ":80",
		RedisKey:    "heatmon:variables",
		GPIOChip:    gpio.DefaultChip,
		Zones: []logic.ZoneConfig{
			{ID: 0, Line: 5},
			{ID: 1, Line: 6},
			{ID: 2, Line: 13},
		},
		Poll:            10 * time.Millisecond,
		Heartbeat:       60 * time.Second,
		Sync:            12 * time.Hour,
		HistoryCapacity: logic.DefaultLogCapacity,
		BufferSize:      wire.DefaultBufferSize,
		Hysteresis:      logic.DefaultHysteresis(),
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv overlays HEATMON_* environment variables onto c.
func (c *Config) LoadFromEnv() error {
	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	var errs []string
	num := func(name string, dst *int) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q", EnvPrefix, name, v))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q", EnvPrefix, name, v))
				return
			}
			*dst = d
		}
	}

	str("BROKER", &c.Broker)
	str("CLIENT_ID", &c.ClientID)
	str("TOPIC_PREFIX", &c.TopicPrefix)
	num("MQTT_BUFFER", &c.MQTTBuffer)
	str("HTTP_ADDR", &c.HTTPAddr)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	num("REDIS_DB", &c.RedisDB)
	str("REDIS_KEY", &c.RedisKey)
	dur("REDIS_TTL", &c.RedisTTL)
	str("GPIO_CHIP", &c.GPIOChip)
	dur("POLL", &c.Poll)
	dur("HEARTBEAT", &c.Heartbeat)
	dur("SYNC", &c.Sync)
	num("HISTORY_CAPACITY", &c.HistoryCapacity)
	num("BUFFER_SIZE", &c.BufferSize)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v := os.Getenv(EnvPrefix + "ZONES"); v != "" {
		zones, err := ParseZones(strings.Split(v, ","))
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			c.Zones = zones
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, ", "))
	}
	return nil
}

// ParseZones parses "id:line" pairs.
func ParseZones(specs []string) ([]logic.ZoneConfig, error) {
	zones := make([]logic.ZoneConfig, 0, len(specs))
	for _, s := range specs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		idStr, lineStr, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("zone %q: want id:line", s)
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("zone %q: bad id: %w", s, err)
		}
		line, err := strconv.Atoi(lineStr)
		if err != nil {
			return nil, fmt.Errorf("zone %q: bad line: %w", s, err)
		}
		zones = append(zones, logic.ZoneConfig{ID: id, Line: line})
	}
	return zones, nil
}

// FormatZones renders zones as "id:line" pairs, the inverse of ParseZones.
func FormatZones(zones []logic.ZoneConfig) []string {
	out := make([]string, len(zones))
	for i, z := range zones {
		out[i] = fmt.Sprintf("%d:%d", z.ID, z.Line)
	}
	return out
}

// Resolve fills derived values. A missing client id gets a random suffix so
// two daemons on one broker do not kick each other off.
func (c *Config) Resolve() {
	if c.ClientID == "" {
		c.ClientID = "heatmon-" + uuid.NewString()[:8]
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = mqtt.DefaultTopicPrefix
	}
}

// Validate reports the first setting the daemon cannot run with.
func (c *Config) Validate() error {
	if len(c.Zones) == 0 {
		return fmt.Errorf("config: at least one zone required")
	}
	ids := make(map[int]bool, len(c.Zones))
	lines := make(map[int]bool, len(c.Zones))
	for _, z := range c.Zones {
		if z.ID < 0 {
			return fmt.Errorf("config: zone id %d is negative", z.ID)
		}
		if ids[z.ID] {
			return fmt.Errorf("config: duplicate zone id %d", z.ID)
		}
		if lines[z.Line] {
			return fmt.Errorf("config: line %d used by more than one zone", z.Line)
		}
		ids[z.ID] = true
		lines[z.Line] = true
	}
	if c.Poll <= 0 || c.Heartbeat <= 0 || c.Sync <= 0 {
		return fmt.Errorf("config: intervals must be positive (poll=%v heartbeat=%v sync=%v)", c.Poll, c.Heartbeat, c.Sync)
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("config: history capacity %d below 1", c.HistoryCapacity)
	}
	if c.BufferSize < 3 {
		return fmt.Errorf("config: buffer size %d below 3", c.BufferSize)
	}
	if c.Broker == "" {
		return fmt.Errorf("config: broker required")
	}
	if err := c.Hysteresis.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
