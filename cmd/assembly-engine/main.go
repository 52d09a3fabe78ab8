// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the assembly-engine CLI.
// Implements: prd008-assembly, prd010-blueprint, prd012-component-library
// (CLI surface). See docs/ARCHITECTURE § Engine Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/assembly-engine/internal/secrets"
	"github.com/pdiddy/assembly-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the assembly-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "assembly-engine",
	Short: "Tool assembly from reusable AI components",
	Long: `assembly-engine assembles AI tools from reusable components. Given a
natural-language context it expands the query, retrieves prompt, content,
and style candidates from the component library, ranks them, scores
compatibility, and produces a versioned blueprint — proposed, simulated,
or persisted as a new tool record.

Each engine surface is a subcommand: assemble runs the pipeline,
blueprint inspects and manipulates blueprint artifacts, and library
manages the bundled component store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./assembly-engine.yaml or ~/.config/assembly-engine/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("assembly-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "assembly-engine"))
		}
	}

	viper.SetEnvPrefix("ASSEMBLY_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger. Verbose switches to the
// development encoder with debug level; both write to stderr so stdout
// stays reserved for command output.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// engineConfig overlays loaded configuration and secrets on the defaults.
func engineConfig() types.EngineConfig {
	cfg := types.DefaultEngineConfig()

	if v := viper.GetInt("rank.max_candidates"); v > 0 {
		cfg.Rank.MaxCandidates = v
	}
	if v := viper.GetInt("rank.top_k"); v > 0 {
		cfg.Rank.TopK = v
	}
	if v := viper.GetDuration("rank.cache_ttl"); v > 0 {
		cfg.Rank.CacheTTL = v
	}
	if v := viper.GetDuration("rank.semantic_timeout"); v > 0 {
		cfg.Rank.SemanticTimeout = v
	}
	if v := viper.GetFloat64("compat.low_threshold"); v > 0 {
		cfg.Compat.LowThreshold = v
	}
	if v := viper.GetString("cache.backend"); v != "" {
		cfg.Cache.Backend = types.CacheBackend(v)
	}
	if v := viper.GetString("ai.model"); v != "" {
		cfg.AI.Model = v
	}
	if v := viper.GetString("library.path"); v != "" {
		cfg.Library.Path = v
	}

	cfg.AI.APIKey = secretDefault("gemini-api-key", viper.GetString("ai.api_key"))
	cfg.Cache.RedisURL = secretDefault("redis-url", viper.GetString("cache.redis_url"))
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
