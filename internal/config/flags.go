package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flag names.
const (
	FlagConfig          = "config"
	FlagBroker          = "broker"
	FlagClientID        = "client-id"
	FlagTopicPrefix     = "topic-prefix"
	FlagMQTTBuffer      = "mqtt-buffer"
	FlagHTTP            = "http"
	FlagRedisAddr       = "redis-addr"
	FlagRedisPassword   = "redis-password"
	FlagRedisDB         = "redis-db"
	FlagRedisKey        = "redis-key"
	FlagRedisTTL        = "redis-ttl"
	FlagGPIOChip        = "gpio-chip"
	FlagZone            = "zone"
	FlagPoll            = "poll"
	FlagHeartbeat       = "heartbeat"
	FlagSync            = "sync"
	FlagHistoryCapacity = "history-capacity"
	FlagBufferSize      = "buffer-size"
	FlagLogLevel        = "log-level"
	FlagLogFormat       = "log-format"
)

// RegisterFlags defines the daemon flags on fs, with defaults taken from
// Default so --help shows the effective values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagConfig, "", "YAML config file")
	fs.String(FlagBroker, d.Broker, "MQTT broker address")
	fs.String(FlagClientID, "", "MQTT client id (random when empty)")
	fs.String(FlagTopicPrefix, d.TopicPrefix, "MQTT topic prefix")
	fs.Int(FlagMQTTBuffer, d.MQTTBuffer, "Messages held while the broker is unreachable")
	fs.String(FlagHTTP, d.HTTPAddr, "HTTP status address (empty to disable)")
	fs.String(FlagRedisAddr, "", "Redis address for the variable mirror (empty to disable)")
	fs.String(FlagRedisPassword, "", "Redis password")
	fs.Int(FlagRedisDB, d.RedisDB, "Redis database number")
	fs.String(FlagRedisKey, d.RedisKey, "Redis hash the variables are written to")
	fs.Duration(FlagRedisTTL, d.RedisTTL, "Expiry of the Redis hash (0 keeps it)")
	fs.String(FlagGPIOChip, d.GPIOChip, "GPIO chip device name")
	fs.StringSlice(FlagZone, FormatZones(d.Zones), "Zone as id:line (repeatable)")
	fs.Duration(FlagPoll, d.Poll, "Zone sampling interval")
	fs.Duration(FlagHeartbeat, d.Heartbeat, "Heartbeat interval")
	fs.Duration(FlagSync, d.Sync, "Clock sync check interval")
	fs.Int(FlagHistoryCapacity, d.HistoryCapacity, "Events kept in the history")
	fs.Int(FlagBufferSize, d.BufferSize, "Bytes available to the encoded history, terminator included")
	fs.String(FlagLogLevel, d.LogLevel, "Log level (debug, info, warn, error)")
	fs.String(FlagLogFormat, d.LogFormat, "Log format (text, json)")
}

// Load builds the configuration from every source, given a parsed fs on
// which RegisterFlags was called.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromFlags(fs); err != nil {
		return nil, err
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFlags overlays the flags that were set on the command line.
// Flags left at their defaults do not override file or environment values.
func (c *Config) LoadFromFlags(fs *pflag.FlagSet) error {
	var firstErr error
	fs.Visit(func(f *pflag.Flag) {
		if firstErr != nil {
			return
		}
		if err := c.applyFlag(fs, f.Name); err != nil {
			firstErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	return firstErr
}

func (c *Config) applyFlag(fs *pflag.FlagSet, name string) error {
	var err error
	switch name {
	case FlagBroker:
		c.Broker, err = fs.GetString(name)
	case FlagClientID:
		c.ClientID, err = fs.GetString(name)
	case FlagTopicPrefix:
		c.TopicPrefix, err = fs.GetString(name)
	case FlagMQTTBuffer:
		c.MQTTBuffer, err = fs.GetInt(name)
	case FlagHTTP:
		c.HTTPAddr, err = fs.GetString(name)
	case FlagRedisAddr:
		c.RedisAddr, err = fs.GetString(name)
	case FlagRedisPassword:
		c.RedisPassword, err = fs.GetString(name)
	case FlagRedisDB:
		c.RedisDB, err = fs.GetInt(name)
	case FlagRedisKey:
		c.RedisKey, err = fs.GetString(name)
	case FlagRedisTTL:
		c.RedisTTL, err = fs.GetDuration(name)
	case FlagGPIOChip:
		c.GPIOChip, err = fs.GetString(name)
	case FlagZone:
		var specs []string
		if specs, err = fs.GetStringSlice(name); err == nil {
			c.Zones, err = ParseZones(specs)
		}
	case FlagPoll:
		c.Poll, err = fs.GetDuration(name)
	case FlagHeartbeat:
		c.Heartbeat, err = fs.GetDuration(name)
	case FlagSync:
		c.Sync, err = fs.GetDuration(name)
	case FlagHistoryCapacity:
		c.HistoryCapacity, err = fs.GetInt(name)
	case FlagBufferSize:
		c.BufferSize, err = fs.GetInt(name)
	case FlagLogLevel:
		c.LogLevel, err = fs.GetString(name)
	case FlagLogFormat:
		c.LogFormat, err = fs.GetString(name)
	}
	return err
}
