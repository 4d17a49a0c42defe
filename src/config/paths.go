package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	// credentials and past rounds are state, not config
	return StoragePaths{
		DatabasePath: filepath.Join(xdg.StateHome, "quorum", "quorum.db"),
	}
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	systemConfigPath := "/etc/quorum/config.json"
	if runtime.GOOS == "windows" {
		systemConfigPath = filepath.Join(os.Getenv("PROGRAMDATA"), "quorum", "config.json")
	}

	return ConfigPrecedence{
		SystemConfig:      systemConfigPath,
		UserConfig:        filepath.Join(xdg.ConfigHome, "quorum", "config.json"),
		ProjectConfig:     filepath.Join(".quorum", "config.json"),
		LocalConfig:       filepath.Join(".quorum", "config.local.json"),
		EnvironmentPrefix: "QUORUM",
	}
}
