package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RuntimeConfig selects the remote quantum service. Channel and Instance
// are fixed selectors sent with every request; the access token is read
// from the environment variable named by TokenEnv, never from the file.
type RuntimeConfig struct {
	BaseURL   string `yaml:"baseURL"`
	Channel   string `yaml:"channel"`
	Instance  string `yaml:"instance"`
	TokenEnv  string `yaml:"tokenEnv"`
	Backend   string `yaml:"backend"`
	TimeoutMs int    `yaml:"timeoutMs"`

	Token string `yaml:"-"`
}

type CircuitConfig struct {
	NumQubits         int `yaml:"numQubits"`
	Layers            int `yaml:"layers"`
	OptimizationLevel int `yaml:"optimizationLevel"`
}

type ClassifierConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// StoreConfig controls where submitted job handles are kept between
// submission and polling.
type StoreConfig struct {
	Driver          string `yaml:"driver"` // memory|redis|postgres
	MemorySize      int    `yaml:"memorySize"`
	RedisTTLMinutes int    `yaml:"redisTTLMinutes"`
	EvictOnTerminal bool   `yaml:"evictOnTerminal"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type AuthConfig struct {
	Enabled bool     `yaml:"enabled"`
	APIKeys []string `yaml:"apiKeys"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

// RetentionConfig controls TTL-like deletion of old job handles so that
// persistent stores do not grow without bound.
type RetentionConfig struct {
	Enabled                bool `yaml:"enabled"`
	CleanupIntervalMinutes int  `yaml:"cleanupIntervalMinutes"`
	HandleTTLHours         int  `yaml:"handleTTLHours"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Circuit    CircuitConfig    `yaml:"circuit"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Store      StoreConfig      `yaml:"store"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Retention  RetentionConfig  `yaml:"retention"`
}

const (
	DefaultBaseURL  = "https://quantum.cloud.ibm.com/api/v1"
	DefaultChannel  = "ibm_quantum_platform"
	DefaultTokenEnv = "QISKIT_IBM_TOKEN"
)

// Load reads the config file and the runtime token. Any failure is fatal:
// the service cannot do anything useful without credentials.
func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	if err := cfg.ResolveToken(os.Getenv); err != nil {
		log.Fatalf("%v", err)
	}

	return cfg
}

// Parse decodes YAML config from r and fills in defaults.
func Parse(r io.Reader) (*Config, error) {
	// Fields that have a meaningful zero value get their defaults before
	// decoding so an explicit 0 in the file survives.
	cfg := Config{Circuit: CircuitConfig{OptimizationLevel: 1}}
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with the service defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Runtime.BaseURL == "" {
		c.Runtime.BaseURL = DefaultBaseURL
	}
	if c.Runtime.Channel == "" {
		c.Runtime.Channel = DefaultChannel
	}
	if c.Runtime.TokenEnv == "" {
		c.Runtime.TokenEnv = DefaultTokenEnv
	}
	if c.Runtime.TimeoutMs <= 0 {
		c.Runtime.TimeoutMs = 30000
	}
	if c.Circuit.NumQubits <= 0 {
		c.Circuit.NumQubits = 18
	}
	if c.Circuit.Layers <= 0 {
		c.Circuit.Layers = 3
	}
	if c.Circuit.OptimizationLevel < 0 {
		c.Circuit.OptimizationLevel = 1
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.MemorySize <= 0 {
		c.Store.MemorySize = 1024
	}
	if c.Retention.CleanupIntervalMinutes <= 0 {
		c.Retention.CleanupIntervalMinutes = 60
	}
}

// ResolveToken reads the access token from the configured environment
// variable using getenv.
func (c *Config) ResolveToken(getenv func(string) string) error {
	token := strings.TrimSpace(getenv(c.Runtime.TokenEnv))
	if token == "" {
		return fmt.Errorf("%s environment variable is not set", c.Runtime.TokenEnv)
	}
	c.Runtime.Token = token
	return nil
}
