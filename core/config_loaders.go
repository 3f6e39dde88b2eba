package core

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// YAMLConfigLoader reads a raw config map from a YAML document. A missing file
// is not an error when Optional is set.
type YAMLConfigLoader struct {
	Path     string
	Optional bool
}

func (l YAMLConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if l.Optional && os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, WrapPoolError(err, KindConfig, "read config file "+path)
	}
	return DecodeYAMLConfig(raw)
}

func DecodeYAMLConfig(raw []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return out, nil
	}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, WrapPoolError(err, KindConfig, "decode yaml config")
	}
	return out, nil
}

type envConfig struct {
	ServiceName        string         `env:"SERVICE_NAME"`
	ProtocolVersion    *int           `env:"PROTOCOL_VERSION"`
	FreshnessThreshold *time.Duration `env:"FRESHNESS_THRESHOLD"`
	AckTimeout         *time.Duration `env:"ACK_TIMEOUT"`
	ReplyTimeout       *time.Duration `env:"REPLY_TIMEOUT"`
	ConnRequestLimit   *int           `env:"CONN_REQUEST_LIMIT"`
	ConnActiveTimeout  *time.Duration `env:"CONN_ACTIVE_TIMEOUT"`
	RequestReadNodes   *int           `env:"REQUEST_READ_NODES"`
}

const DefaultEnvPrefix = "VDRPOOL_"

// EnvConfigLoader reads VDRPOOL_* environment variables. Environment replaces
// the process environment when set.
type EnvConfigLoader struct {
	Prefix      string
	Environment map[string]string
}

func (l EnvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	var parsed envConfig
	options := env.Options{Prefix: prefix}
	if l.Environment != nil {
		options.Environment = l.Environment
	}
	if err := env.ParseWithOptions(&parsed, options); err != nil {
		return nil, WrapPoolError(err, KindConfig, "parse env")
	}

	out := map[string]any{}
	if value := strings.TrimSpace(parsed.ServiceName); value != "" {
		out["service_name"] = value
	}
	pool := map[string]any{}
	if parsed.ProtocolVersion != nil {
		pool["protocol_version"] = *parsed.ProtocolVersion
	}
	if parsed.FreshnessThreshold != nil {
		pool["freshness_threshold"] = *parsed.FreshnessThreshold
	}
	if parsed.AckTimeout != nil {
		pool["ack_timeout"] = *parsed.AckTimeout
	}
	if parsed.ReplyTimeout != nil {
		pool["reply_timeout"] = *parsed.ReplyTimeout
	}
	if parsed.ConnRequestLimit != nil {
		pool["conn_request_limit"] = *parsed.ConnRequestLimit
	}
	if parsed.ConnActiveTimeout != nil {
		pool["conn_active_timeout"] = *parsed.ConnActiveTimeout
	}
	if parsed.RequestReadNodes != nil {
		pool["request_read_nodes"] = *parsed.RequestReadNodes
	}
	if len(pool) > 0 {
		out["pool"] = pool
	}
	return out, nil
}

var durationKeys = map[string]struct{}{
	"freshness_threshold": {},
	"ack_timeout":         {},
	"reply_timeout":       {},
	"conn_active_timeout": {},
}

// normalizeRawConfig converts duration fields under "pool" to time.Duration.
// Strings use time.ParseDuration syntax, bare numbers are seconds.
func normalizeRawConfig(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		out[key] = value
	}
	pool, ok := out["pool"].(map[string]any)
	if !ok {
		return out
	}
	normalized := make(map[string]any, len(pool))
	for key, value := range pool {
		if _, isDuration := durationKeys[key]; isDuration {
			if parsed, ok := toDuration(value); ok {
				value = parsed
			}
		}
		normalized[key] = value
	}
	out["pool"] = normalized
	return out
}

func toDuration(value any) (time.Duration, bool) {
	switch typed := value.(type) {
	case time.Duration:
		return typed, true
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(typed))
		if err != nil {
			return 0, false
		}
		return parsed, true
	case int:
		return time.Duration(typed) * time.Second, true
	case int64:
		return time.Duration(typed) * time.Second, true
	case float64:
		return seconds(typed), true
	default:
		return 0, false
	}
}
