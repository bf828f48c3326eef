package domain

import "time"

// Config represents the doclane configuration loaded from doclane.yaml.
type Config struct {
	API     APIConfig
	Session SessionConfig
	Polling PollingConfig
	Results ResultsConfig
	Upload  UploadConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionStorage selects where the session token is persisted.
type SessionStorage string

const (
	StorageMemory SessionStorage = "memory"
	StorageFile   SessionStorage = "file"
	StorageRedis  SessionStorage = "redis"
)

type SessionConfig struct {
	Storage  SessionStorage
	Path     string // file storage; empty means ~/.doclane/session.json
	RedisURL string
	RedisKey string
	TTL      time.Duration
}

type PollingConfig struct {
	QueueInterval     time.Duration
	DashboardInterval time.Duration
	QueuePageSize     int
	RecentLimit       int
}

type ResultsConfig struct {
	// Fields maps a display field name to a JSONPath over the raw result payload.
	Fields map[string]string
}

type UploadConfig struct {
	Concurrency int
}

// DefaultResultFields are the invoice fields the processing service extracts.
func DefaultResultFields() map[string]string {
	return map[string]string{
		"invoice_number": "$.invoice_number",
		"vendor_name":    "$.vendor_name",
		"invoice_date":   "$.invoice_date",
		"due_date":       "$.due_date",
		"total_amount":   "$.total_amount",
	}
}

// DefaultConfig provides sane defaults if doclane.yaml is partially missing.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Storage:  StorageFile,
			RedisKey: "doclane:session",
			TTL:      DefaultSessionTTL,
		},
		Polling: PollingConfig{
			QueueInterval:     5 * time.Second,
			DashboardInterval: 30 * time.Second,
			QueuePageSize:     10,
			RecentLimit:       5,
		},
		Results: ResultsConfig{
			Fields: DefaultResultFields(),
		},
		Upload: UploadConfig{
			Concurrency: 4,
		},
	}
}
