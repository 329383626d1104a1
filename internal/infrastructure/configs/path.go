package configs

import (
	"flag"
	"os"

	"codepair/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file from the --config flag, the
// CODEPAIR_CONFIG env var, or a set of conventional locations. An empty
// result is fine: Load falls back to built-in defaults.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("CODEPAIR_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"../../config.yaml", // keep for local dev
			"/etc/codepair/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
