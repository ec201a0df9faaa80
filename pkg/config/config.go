package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Location LocationConfig `yaml:"location"`
	POI      POIConfig      `yaml:"poi"`
	Cache    CacheConfig    `yaml:"cache"`
	Narrator NarratorConfig `yaml:"narrator"`
	LLM      LLMConfig      `yaml:"llm"`
	Request  RequestConfig  `yaml:"request"`
	Sim      SimConfig      `yaml:"sim"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
}

// LocationConfig holds the position filter settings.
type LocationConfig struct {
	AccuracyThreshold  Distance `yaml:"accuracy_threshold" validate:"gt=0"`
	MinHeadingDistance Distance `yaml:"min_heading_distance" validate:"gte=0"`
	HeadingWindow      int      `yaml:"heading_window" validate:"min=1"`
}

// POIConfig holds the POI query policy.
type POIConfig struct {
	SearchRadius      Distance  `yaml:"search_radius"`
	RadiusPresets     []float64 `yaml:"radius_presets" validate:"min=1,dive,gt=0"`
	MovementThreshold Distance  `yaml:"movement_threshold"`
	RateLimit         Duration  `yaml:"rate_limit"`
	QueryTimeout      Duration  `yaml:"query_timeout"`
	RadiusFloor       Distance  `yaml:"radius_floor"`
	Endpoints         []string  `yaml:"endpoints" validate:"min=1,dive,http_url"`
}

// CacheConfig holds the spatial result cache settings.
type CacheConfig struct {
	TTL        Duration `yaml:"ttl"`
	MaxEntries int      `yaml:"max_entries" validate:"min=1"`
	Precision  int      `yaml:"precision" validate:"min=1,max=12"`
}

// NarratorConfig holds the narration decision settings.
type NarratorConfig struct {
	AutoNarrate    bool     `yaml:"auto_narrate"`
	Cooldown       Duration `yaml:"cooldown"`
	NarratedExpiry Duration `yaml:"narrated_expiry"`
	HistorySize    int      `yaml:"history_size"`
	BackendURL     string   `yaml:"backend_url" validate:"omitempty,http_url"` // empty: generate in-process
}

// LLMConfig holds settings for the Large Language Model provider.
type LLMConfig struct {
	Provider        string        `yaml:"provider"` // "gemini"
	Model           string        `yaml:"model"`
	Key             string        `yaml:"key"`
	Temperature     float32       `yaml:"temperature"`
	MaxOutputTokens int32         `yaml:"max_output_tokens"`
	Timeout         Duration      `yaml:"timeout"`
	FallbackLatency Duration      `yaml:"fallback_latency"`
	Breaker         BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds the circuit breaker around remote narration.
type BreakerConfig struct {
	Threshold int      `yaml:"threshold" validate:"min=1"`
	Cooldown  Duration `yaml:"cooldown"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries" validate:"gte=0"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// SimConfig selects where position fixes come from.
type SimConfig struct {
	Provider string          `yaml:"provider" validate:"omitempty,oneof=mock push"`
	Mock     MockRouteConfig `yaml:"mock"`
}

// MockRouteConfig holds settings for the demo drive.
type MockRouteConfig struct {
	Tick      Duration `yaml:"tick"`
	Accuracy  float64  `yaml:"accuracy"`
	AutoStart bool     `yaml:"auto_start"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server    LogSettings `yaml:"server"`
	Requests  LogSettings `yaml:"requests"`
	Narration LogSettings `yaml:"narration"`
	Gemini    LogSettings `yaml:"gemini"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds the settings store location.
type DBConfig struct {
	Path      string   `yaml:"path"`
	Retention Duration `yaml:"retention"` // narration log
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address        string   `yaml:"address" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins"` // beyond localhost and LAN
	StaticDir      string   `yaml:"static_dir"`      // built frontend, served with SPA fallback
}

// InMemoryDB keeps runtime settings for the lifetime of the process only.
const InMemoryDB = "file:driveguide?mode=memory&cache=shared"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Location: LocationConfig{
			AccuracyThreshold:  Distance(100),
			MinHeadingDistance: Distance(5),
			HeadingWindow:      5,
		},
		POI: POIConfig{
			SearchRadius:      Distance(1000),
			RadiusPresets:     []float64{500, 1000, 2000, 3000},
			MovementThreshold: Distance(300),
			RateLimit:         Duration(10 * time.Second),
			QueryTimeout:      Duration(8 * time.Second),
			RadiusFloor:       Distance(2000),
			Endpoints: []string{
				"https://overpass-api.de/api/interpreter",
				"https://overpass.kumi.systems/api/interpreter",
				"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
			},
		},
		Cache: CacheConfig{
			TTL:        Duration(5 * time.Minute),
			MaxEntries: 50,
			Precision:  5,
		},
		Narrator: NarratorConfig{
			AutoNarrate:    true,
			Cooldown:       Duration(30 * time.Second),
			NarratedExpiry: Duration(5 * time.Minute),
			HistorySize:    20,
		},
		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-2.0-flash",
			Key:             "",
			Temperature:     0.7,
			MaxOutputTokens: 300,
			Timeout:         Duration(15 * time.Second),
			FallbackLatency: Duration(500 * time.Millisecond),
			Breaker: BreakerConfig{
				Threshold: 2,
				Cooldown:  Duration(5 * time.Minute),
			},
		},
		Request: RequestConfig{
			Retries: 0,
			Timeout: Duration(60 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Sim: SimConfig{
			Provider: "mock",
			Mock: MockRouteConfig{
				Tick:      Duration(3 * time.Second),
				Accuracy:  10,
				AutoStart: false,
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Narration: LogSettings{
				Path:  "./logs/narration.log",
				Level: "INFO",
			},
			Gemini: LogSettings{
				Path:  "./logs/gemini.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:      InMemoryDB,
			Retention: Duration(30 * 24 * time.Hour),
		},
		Server: ServerConfig{
			Address: "localhost:3001",
		},
	}
}

// envOverrides fill secrets and deployment settings from the environment.
// They apply after the file is read and are never written back.
var envOverrides = []struct {
	name  string
	apply func(c *Config, v string)
}{
	{"GEMINI_API_KEY", func(c *Config, v string) {
		if c.LLM.Key == "" {
			c.LLM.Key = v
		}
	}},
	{"DRIVEGUIDE_ADDRESS", func(c *Config, v string) { c.Server.Address = v }},
	{"DRIVEGUIDE_DB", func(c *Config, v string) { c.DB.Path = v }},
}

// Load reads the configuration at path over the defaults. A missing file is
// created from the defaults; an existing one is never rewritten.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(cfg, v)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and the constraints between fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !c.IsRadiusPreset(float64(c.POI.SearchRadius)) {
		return fmt.Errorf("invalid config: poi.search_radius %.0f is not one of the radius presets %v",
			float64(c.POI.SearchRadius), c.POI.RadiusPresets)
	}
	return nil
}

// IsRadiusPreset reports whether r is one of the configured search radius presets.
func (c *Config) IsRadiusPreset(r float64) bool {
	for _, p := range c.POI.RadiusPresets {
		if p == r {
			return true
		}
	}
	return false
}

const fileHeader = `# DriveGuide Configuration
# ------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week); a bare number is ms
#   Distance: m (meters), km (kilometers), nm (nautical miles), mi (miles), ft (feet)

`

// keyComments annotate generated config files, keyed by YAML path.
var keyComments = map[string]string{
	"sim.provider":         "Options: mock, push",
	"narrator.backend_url": "Remote narration backend (POST /api/narrate); empty generates in-process",
	"llm.key":              "Prefer the GEMINI_API_KEY environment variable",
	"db.path":              "SQLite file; the default keeps settings in memory",
	"server.static_dir":    "Built frontend served at /; empty disables it",
}

// Save writes cfg to path with explanatory comments, creating directories.
func Save(path string, cfg *Config) error {
	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	annotate(&root, "")

	data, err := yaml.Marshal(&root)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func annotate(n *yaml.Node, prefix string) {
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		path := key.Value
		if prefix != "" {
			path = prefix + "." + path
		}
		if c, ok := keyComments[path]; ok {
			key.HeadComment = "# " + c
		}
		annotate(val, path)
	}
}

// GenerateDefault writes the default config to path unless a file exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return Save(path, DefaultConfig())
}
