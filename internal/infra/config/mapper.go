package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/aalvaropc/doclane/internal/domain"
)

// mapConfig applies yc on top of the defaults and validates the result.
func mapConfig(path string, yc yamlConfig) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	if v := strings.TrimSpace(yc.API.BaseURL); v != "" {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return domain.Config{}, invalidField(path, "api.base_url", "must be an absolute http(s) URL")
		}
		cfg.API.BaseURL = strings.TrimRight(v, "/")
	}
	if err := setDuration(path, "api.timeout", yc.API.Timeout, &cfg.API.Timeout); err != nil {
		return domain.Config{}, err
	}

	if v := strings.TrimSpace(yc.Session.Storage); v != "" {
		s, err := parseStorage(v)
		if err != nil {
			return domain.Config{}, invalidField(path, "session.storage", err.Error())
		}
		cfg.Session.Storage = s
	}
	if v := strings.TrimSpace(yc.Session.Path); v != "" {
		cfg.Session.Path = v
	}
	if v := strings.TrimSpace(yc.Session.RedisURL); v != "" {
		cfg.Session.RedisURL = v
	}
	if v := strings.TrimSpace(yc.Session.RedisKey); v != "" {
		cfg.Session.RedisKey = v
	}
	if err := setDuration(path, "session.ttl", yc.Session.TTL, &cfg.Session.TTL); err != nil {
		return domain.Config{}, err
	}
	if cfg.Session.Storage == domain.StorageRedis && cfg.Session.RedisURL == "" {
		return domain.Config{}, invalidField(path, "session.redis_url", "required when storage is redis")
	}

	if err := setDuration(path, "polling.queue_interval", yc.Polling.QueueInterval, &cfg.Polling.QueueInterval); err != nil {
		return domain.Config{}, err
	}
	if err := setDuration(path, "polling.dashboard_interval", yc.Polling.DashboardInterval, &cfg.Polling.DashboardInterval); err != nil {
		return domain.Config{}, err
	}
	if err := setPositive(path, "polling.queue_page_size", yc.Polling.QueuePageSize, &cfg.Polling.QueuePageSize); err != nil {
		return domain.Config{}, err
	}
	if err := setPositive(path, "polling.recent_limit", yc.Polling.RecentLimit, &cfg.Polling.RecentLimit); err != nil {
		return domain.Config{}, err
	}

	if len(yc.Results.Fields) > 0 {
		fields := make(map[string]string, len(yc.Results.Fields))
		for name, expr := range yc.Results.Fields {
			if _, err := jsonpath.New(expr); err != nil {
				return domain.Config{}, invalidField(path, "results.fields."+name, err.Error())
			}
			fields[name] = expr
		}
		cfg.Results.Fields = fields
	}

	if err := setPositive(path, "upload.concurrency", yc.Upload.Concurrency, &cfg.Upload.Concurrency); err != nil {
		return domain.Config{}, err
	}

	return cfg, nil
}

func setDuration(path, field, raw string, dst *time.Duration) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return invalidField(path, field, err.Error())
	}
	if d <= 0 {
		return invalidField(path, field, "must be positive")
	}
	*dst = d
	return nil
}

func setPositive(path, field string, v *int, dst *int) error {
	if v == nil {
		return nil
	}
	if *v <= 0 {
		return invalidField(path, field, "must be positive")
	}
	*dst = *v
	return nil
}

func parseStorage(s string) (domain.SessionStorage, error) {
	switch st := domain.SessionStorage(strings.ToLower(s)); st {
	case domain.StorageMemory, domain.StorageFile, domain.StorageRedis:
		return st, nil
	default:
		return "", fmt.Errorf("unsupported storage %q (expected memory|file|redis)", s)
	}
}

func invalidField(path, field, msg string) error {
	return &domain.OpError{
		Op:   "config.map",
		Kind: domain.KindInvalidConfig,
		Path: path,
		Err:  fmt.Errorf("field %s: %s: %w", field, msg, domain.ErrInvalidConfig),
	}
}
