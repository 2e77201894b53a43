package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/exodash/internal/ai"
	cfgpkg "github.com/KaramelBytes/exodash/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Exodash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		if cfg.BaseURL != "" {
			fmt.Fprintf(out, "base_url: %s\n", cfg.BaseURL)
		}
		fmt.Fprintf(out, "data_source: %s\n", cfg.DataSource)
		fmt.Fprintf(out, "text_model: %s\n", cfg.TextModel)
		fmt.Fprintf(out, "image_model: %s\n", cfg.ImageModel)
		fmt.Fprintf(out, "tts_model: %s\n", cfg.TTSModel)
		fmt.Fprintf(out, "voice: %s\n", cfg.Voice)
		fmt.Fprintf(out, "image_size: %s\n", cfg.ImageSize)
		if cfg.ModelsCatalog != "" {
			fmt.Fprintf(out, "models_catalog: %s\n", cfg.ModelsCatalog)
		}
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		if cfg.CachePath != "" {
			fmt.Fprintf(out, "cache_path: %s\n", cfg.CachePath)
			fmt.Fprintf(out, "cache_ttl_min: %d\n", cfg.CacheTTLMin)
		}
		if cfg.OTLPEndpoint != "" {
			fmt.Fprintf(out, "otlp_endpoint: %s (insecure=%t)\n", cfg.OTLPEndpoint, cfg.OTLPInsecure)
		}
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		intVal := func(min int) (int, error) {
			i, err := strconv.Atoi(val)
			if err != nil || i < min {
				return 0, fmt.Errorf("invalid int for %s: %v", key, val)
			}
			return i, nil
		}
		var err error
		switch key {
		case "api_key":
			cfg.APIKey = val
		case "base_url":
			cfg.BaseURL = val
		case "data_source":
			cfg.DataSource = val
		case "text_model":
			cfg.TextModel = val
		case "image_model":
			cfg.ImageModel = val
		case "tts_model":
			cfg.TTSModel = val
		case "voice":
			cfg.Voice = val
		case "image_size":
			if !ai.ValidImageSize(val) {
				return fmt.Errorf("invalid image_size: %s (use one of %v)", val, ai.ImageSizes)
			}
			cfg.ImageSize = ai.NormalizeImageSize(val)
		case "models_catalog":
			cfg.ModelsCatalog = val
		case "listen_addr":
			cfg.ListenAddr = val
		case "log_level":
			switch val {
			case "debug", "info", "warn", "error":
				cfg.LogLevel = val
			default:
				return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
			}
		case "cache_path":
			cfg.CachePath = val
		case "cache_ttl_min":
			cfg.CacheTTLMin, err = intVal(0)
		case "otlp_endpoint":
			cfg.OTLPEndpoint = val
		case "otlp_insecure":
			cfg.OTLPInsecure, err = strconv.ParseBool(val)
		case "http_timeout_sec":
			cfg.HTTPTimeoutSec, err = intVal(1)
		case "retry_max_attempts":
			cfg.RetryMaxAttempts, err = intVal(1)
		case "retry_base_delay_ms":
			cfg.RetryBaseDelayMs, err = intVal(0)
		case "retry_max_delay_ms":
			cfg.RetryMaxDelayMs, err = intVal(0)
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
