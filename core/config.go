package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultProtocolVersion    = 2
	DefaultFreshnessThreshold = 300 * time.Second
	DefaultAckTimeout         = 20 * time.Second
	DefaultReplyTimeout       = 60 * time.Second
	DefaultConnRequestLimit   = 5
	DefaultConnActiveTimeout  = 5 * time.Second
	DefaultRequestReadNodes   = 2
)

// PoolConfig is handed to the PoolFactory when a pool is created. Changing the
// config does not affect pools that already exist.
type PoolConfig struct {
	ProtocolVersion    int           `koanf:"protocol_version" mapstructure:"protocol_version" json:"protocol_version" yaml:"protocol_version"`
	FreshnessThreshold time.Duration `koanf:"freshness_threshold" mapstructure:"freshness_threshold" json:"freshness_threshold" yaml:"freshness_threshold"`
	AckTimeout         time.Duration `koanf:"ack_timeout" mapstructure:"ack_timeout" json:"ack_timeout" yaml:"ack_timeout"`
	ReplyTimeout       time.Duration `koanf:"reply_timeout" mapstructure:"reply_timeout" json:"reply_timeout" yaml:"reply_timeout"`
	ConnRequestLimit   int           `koanf:"conn_request_limit" mapstructure:"conn_request_limit" json:"conn_request_limit" yaml:"conn_request_limit"`
	ConnActiveTimeout  time.Duration `koanf:"conn_active_timeout" mapstructure:"conn_active_timeout" json:"conn_active_timeout" yaml:"conn_active_timeout"`
	RequestReadNodes   int           `koanf:"request_read_nodes" mapstructure:"request_read_nodes" json:"request_read_nodes" yaml:"request_read_nodes"`
}

type Config struct {
	ServiceName string     `koanf:"service_name" mapstructure:"service_name"`
	Pool        PoolConfig `koanf:"pool" mapstructure:"pool"`
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		ProtocolVersion:    DefaultProtocolVersion,
		FreshnessThreshold: DefaultFreshnessThreshold,
		AckTimeout:         DefaultAckTimeout,
		ReplyTimeout:       DefaultReplyTimeout,
		ConnRequestLimit:   DefaultConnRequestLimit,
		ConnActiveTimeout:  DefaultConnActiveTimeout,
		RequestReadNodes:   DefaultRequestReadNodes,
	}
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "vdrpool",
		Pool:        DefaultPoolConfig(),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	return c.Pool.Validate()
}

func (c PoolConfig) Validate() error {
	if c.ProtocolVersion < 1 || c.ProtocolVersion > 2 {
		return fmt.Errorf("core: unsupported protocol_version %d", c.ProtocolVersion)
	}
	if c.AckTimeout <= 0 {
		return fmt.Errorf("core: ack_timeout must be positive")
	}
	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("core: reply_timeout must be positive")
	}
	if c.FreshnessThreshold < 0 {
		return fmt.Errorf("core: freshness_threshold must not be negative")
	}
	if c.ConnRequestLimit <= 0 {
		return fmt.Errorf("core: conn_request_limit must be positive")
	}
	if c.ConnActiveTimeout <= 0 {
		return fmt.Errorf("core: conn_active_timeout must be positive")
	}
	if c.RequestReadNodes <= 0 {
		return fmt.Errorf("core: request_read_nodes must be positive")
	}
	return nil
}

// poolConfigJSON is the wire shape accepted by Service.SetPoolConfig. Durations
// are expressed in seconds, every field is optional and falls back to the
// current value.
type poolConfigJSON struct {
	ProtocolVersion    *int     `json:"protocol_version"`
	FreshnessThreshold *float64 `json:"freshness_threshold"`
	AckTimeout         *float64 `json:"ack_timeout"`
	ReplyTimeout       *float64 `json:"reply_timeout"`
	ConnRequestLimit   *int     `json:"conn_request_limit"`
	ConnActiveTimeout  *float64 `json:"conn_active_timeout"`
	RequestReadNodes   *int     `json:"request_read_nodes"`
}

func (p poolConfigJSON) apply(base PoolConfig) PoolConfig {
	out := base
	if p.ProtocolVersion != nil {
		out.ProtocolVersion = *p.ProtocolVersion
	}
	if p.FreshnessThreshold != nil {
		out.FreshnessThreshold = seconds(*p.FreshnessThreshold)
	}
	if p.AckTimeout != nil {
		out.AckTimeout = seconds(*p.AckTimeout)
	}
	if p.ReplyTimeout != nil {
		out.ReplyTimeout = seconds(*p.ReplyTimeout)
	}
	if p.ConnRequestLimit != nil {
		out.ConnRequestLimit = *p.ConnRequestLimit
	}
	if p.ConnActiveTimeout != nil {
		out.ConnActiveTimeout = seconds(*p.ConnActiveTimeout)
	}
	if p.RequestReadNodes != nil {
		out.RequestReadNodes = *p.RequestReadNodes
	}
	return out
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}
