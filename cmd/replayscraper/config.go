package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"replayscraper/pkg/config"
	"replayscraper/pkg/store"
	"replayscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage replayscraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (REPLAYSCRAPER_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'replayscraper.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging flags, environment
variables, the configuration file and defaults.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value ranges
  - Path accessibility`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# replayscraper configuration file
#
# Every option can also be set with an environment variable prefixed with
# REPLAYSCRAPER_, e.g. REPLAYSCRAPER_DB_PATH or REPLAYSCRAPER_MAX_SIZE.
# Lists in environment variables are separated by ';'.

showdown:
  replay_url: "https://replay.pokemonshowdown.com"
  ladder_url: "https://pokemonshowdown.com/ladder"
  # Used to list the users present in chat rooms
  websocket_url: "wss://sim3.psim.us/showdown/websocket"
  user_agent: "replayscraper/1.0"
  request_timeout: 30s

# How often each job runs in schedule mode. 0 disables a job.
schedule:
  recent: 15m
  formats: 6h
  ladders: 3h
  rooms: 1h
  members: 2h
  resolver: 5s
  tick: 1s

harvest:
  # schedule, recent or format
  mode: schedule
  formats:
    - "[Gen 9] OU"
    - "[Gen 9] Random Battle"
  rooms:
    - lobby
    - tournaments
  # Pages searched per format
  max_pages: 100
  # Players taken from the top of each ladder
  ladder_top: 100
  # Pause between passes in recent mode
  wait: 1000s

resolver:
  # Minimum delay between two log fetches, shared by all resolver units
  min_delay: 50ms

presence:
  retries: 7
  retry_delay: 1s
  wait: 15s

storage:
  path: "logs.db"
  # Stop once the database file is larger than this many bytes
  max_size: 10000000000
  # Queued references are saved here on shutdown
  snapshot_path: "pending.json"

metrics:
  enabled: false
  listen: ":9108"

logging:
  # debug, info, warn, error
  level: "info"
  # Leave empty to log to stdout only
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "replayscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return fmt.Errorf("%s already exists", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the tracked formats and rooms")
	fmt.Println("2. Run 'replayscraper config validate' to check the configuration")
	fmt.Println("3. Start harvesting with 'replayscraper run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		return err
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (REPLAYSCRAPER_*)")
	fmt.Println("3. .env files")
	if configFile != "" {
		fmt.Printf("4. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("4. Configuration file: (searched in default locations)")
	}
	fmt.Println("5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	} else {
		ui.PrintInfo("Validating configuration", "(default locations)")
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return err
	}

	var warnings, problems []string

	if len(cfg.Harvest.Formats) == 0 {
		warnings = append(warnings, "no formats tracked, only recent replays will be found")
	}
	if len(cfg.Harvest.Rooms) == 0 && cfg.Schedule.Rooms > 0 {
		warnings = append(warnings, "rooms job enabled without any rooms")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create database directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:", "")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("configuration has %d error(s)", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:", "")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Mode: %s\n", cfg.Harvest.Mode)
	fmt.Printf("  Database: %s (budget %s)\n", cfg.Storage.Path, store.HumanSize(cfg.Storage.MaxSize))
	fmt.Printf("  Formats: %d, rooms: %d\n", len(cfg.Harvest.Formats), len(cfg.Harvest.Rooms))
	fmt.Printf("  Min fetch delay: %s\n", cfg.Resolver.MinDelay)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
