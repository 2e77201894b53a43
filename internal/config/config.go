package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user config directory under $HOME.
const DirName = ".exodash"

// DefaultDataSource is the CSV loaded when nothing else is configured.
const DefaultDataSource = "data/tess_confirmed_planets.csv"

// Global configuration structure.
type Global struct {
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	DataSource string `mapstructure:"data_source" yaml:"data_source"`

	// Models per feature
	TextModel  string `mapstructure:"text_model" yaml:"text_model"`
	ImageModel string `mapstructure:"image_model" yaml:"image_model"`
	TTSModel   string `mapstructure:"tts_model" yaml:"tts_model"`
	Voice      string `mapstructure:"voice" yaml:"voice"`
	ImageSize  string `mapstructure:"image_size" yaml:"image_size"`
	// Optional JSON file merged into the model catalog
	ModelsCatalog string `mapstructure:"models_catalog" yaml:"models_catalog,omitempty"`

	// Server
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`

	// Artifact cache; empty disables it
	CachePath   string `mapstructure:"cache_path" yaml:"cache_path"`
	CacheTTLMin int    `mapstructure:"cache_ttl_min" yaml:"cache_ttl_min"`

	// Tracing; empty endpoint disables export
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint,omitempty"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure" yaml:"otlp_insecure,omitempty"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
}

// Dir returns ~/.exodash.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.exodash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// The file may hold an API key.
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Empty defaults register the keys so AutomaticEnv sees them on Unmarshal.
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("models_catalog", "")
	v.SetDefault("data_source", DefaultDataSource)
	v.SetDefault("text_model", "gemini-2.5-flash")
	v.SetDefault("image_model", "gemini-3-pro-image-preview")
	v.SetDefault("tts_model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("voice", "Kore")
	v.SetDefault("image_size", "1K")
	v.SetDefault("listen_addr", ":3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_path", "")
	v.SetDefault("cache_ttl_min", 0)
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("otlp_insecure", false)
	// HTTP/retry defaults; features make a single attempt
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EXODASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Conventional key variables used by Gemini tooling.
	if c.APIKey == "" {
		for _, k := range []string{"GEMINI_API_KEY", "API_KEY"} {
			if val := strings.TrimSpace(os.Getenv(k)); val != "" {
				c.APIKey = val
				break
			}
		}
	}
	return &c, nil
}
