package config

// yamlConfig mirrors doclane.yaml. Every field is optional; missing values keep defaults.
type yamlConfig struct {
	API     yamlAPI     `yaml:"api"`
	Session yamlSession `yaml:"session"`
	Polling yamlPolling `yaml:"polling"`
	Results yamlResults `yaml:"results"`
	Upload  yamlUpload  `yaml:"upload"`
}

type yamlAPI struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type yamlSession struct {
	Storage  string `yaml:"storage"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	RedisKey string `yaml:"redis_key"`
	TTL      string `yaml:"ttl"`
}

type yamlPolling struct {
	QueueInterval     string `yaml:"queue_interval"`
	DashboardInterval string `yaml:"dashboard_interval"`
	QueuePageSize     *int   `yaml:"queue_page_size"`
	RecentLimit       *int   `yaml:"recent_limit"`
}

type yamlResults struct {
	Fields map[string]string `yaml:"fields"`
}

type yamlUpload struct {
	Concurrency *int `yaml:"concurrency"`
}
