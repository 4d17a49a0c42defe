package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/elee1766/quorum/src/config"
)

// ConfigCmd inspects configuration
type ConfigCmd struct {
	Show   ConfigShowCmd   `cmd:"" help:"Print the effective configuration"`
	Schema ConfigSchemaCmd `cmd:"" help:"Print the configuration JSON schema"`
	Path   ConfigPathCmd   `cmd:"" help:"Print configuration and state paths"`
}

// ConfigShowCmd prints the merged configuration
type ConfigShowCmd struct {
	Sources bool `help:"Also list the files that contributed"`
}

// Run executes the config show command
func (c *ConfigShowCmd) Run(cli *CLI) error {
	cfg, loader, err := loadConfig(cli)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if !c.Sources {
		return enc.Encode(cfg)
	}
	return enc.Encode(struct {
		Config  *config.Config          `json:"config"`
		Sources []config.ConfigLocation `json:"sources"`
	}{cfg, loader.Sources()})
}

// ConfigSchemaCmd prints the JSON schema
type ConfigSchemaCmd struct{}

// Run executes the config schema command
func (c *ConfigSchemaCmd) Run() error {
	data, err := config.Schema()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// ConfigPathCmd prints the locations quorum reads and writes
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(cli *CLI) error {
	paths := config.GetConfigPaths()
	if cli.Config != "" {
		paths.LocalConfig = cli.Config
	}
	db := config.GetDefaultStoragePaths().DatabasePath
	if cli.DBPath != "" {
		db = cli.DBPath
	}

	fmt.Printf("system:   %s\n", paths.SystemConfig)
	fmt.Printf("user:     %s\n", paths.UserConfig)
	fmt.Printf("project:  %s\n", paths.ProjectConfig)
	fmt.Printf("local:    %s\n", paths.LocalConfig)
	fmt.Printf("database: %s\n", db)
	return nil
}
