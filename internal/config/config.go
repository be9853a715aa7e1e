package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Player  PlayerConfig  `yaml:"player,omitempty"`
	DRM     DRMConfig     `yaml:"drm,omitempty"`
	Library LibraryConfig `yaml:"library,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// PlayerConfig contains playback backend settings
type PlayerConfig struct {
	Backend string `yaml:"backend,omitempty"` // "platform", "extended"
	Path    string `yaml:"path,omitempty"`    // mpv binary
	Args    string `yaml:"args,omitempty"`
	// Directory the mpv IPC sockets are created in.  Ignored on Windows where named pipes are used.
	SocketDir string `yaml:"socket_dir,omitempty"`
	// Repeat mode of the extended backend.  One of: all, one, off
	Repeat                string `yaml:"repeat,omitempty"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds,omitempty"`
	// NoWindow stops mpv from opening its own window when no surface has been attached
	NoWindow bool `yaml:"no_window,omitempty"`
}

// DRMConfig contains settings used by the extended backend when a DRM source is loaded
type DRMConfig struct {
	Scheme      string `yaml:"scheme,omitempty"` // "clearkey", "widevine", "playready"
	LicenseURL  string `yaml:"license_url,omitempty"`
	MinAPILevel int    `yaml:"min_api_level,omitempty"`
}

// LibraryConfig contains the media the host offers for playback
type LibraryConfig struct {
	Entries      []LibraryEntry `yaml:"entries,omitempty"`
	AssetDir     string         `yaml:"asset_dir,omitempty"`
	CatalogURL   string         `yaml:"catalog_url,omitempty"`
	CatalogToken string         `yaml:"catalog_token,omitempty"`
}

// LibraryEntry is a single configured media source
type LibraryEntry struct {
	Title   string `yaml:"title"`
	Locator string `yaml:"locator"`
	DRM     bool   `yaml:"drm,omitempty"`
}

// LoggingConfig contains log related settings
type LoggingConfig struct {
	Level    string `yaml:"level,omitempty"`
	FilePath string `yaml:"file_path,omitempty"`
}

// Load builds a configuration struct from multiple sources using these steps:
// 1. Create a base config with default values
// 2. If no config file exists on disk, save the default config to that location
// 3. Apply 'dynamic' properties.  Dynamic properties are those that are determined at runtime, for example log file location which is different per OS.
// 4. Load & merge the config file, overwriting any defaults with user-specified values
// 5. Apply environment variable overrides
func Load() (*Config, error) {
	cfg := createBaseDefaultConfig()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to determine config file path: %w", err)
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		// If there is an error saving the default config, then still let the application startup using the defaults.
		_ = save(cfg, configPath)
	}

	applyDynamicDefaults(cfg)

	fileConfig, err := loadFromDisk(configPath)
	if err != nil {
		return nil, err
	}
	if err = mergo.Merge(cfg, fileConfig, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("error merging config loaded from disk: %w", err)
	}

	applyEnvVarOverrides(cfg)

	return cfg, nil
}

// applyDynamicDefaults sets runtime-determined default values for any properties that haven't been explicitly configured.
// Unlike static defaults, these values might change between runs based on the environment or system configuration.
func applyDynamicDefaults(cfg *Config) {
	cfg.Logging.FilePath = defaultLogFilePath()
	cfg.Player.SocketDir = defaultSocketDir()
}

// loadFromDisk loads the YAML config from disk and returns the unmarshalled Config
func loadFromDisk(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	return cfg, nil
}

func save(cfg *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// UpdateConfig reads the existing config, applies the update function, and saves it back to disk
func UpdateConfig(updateFn func(*Config)) error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("unable to determine config file path: %w", err)
	}

	cfg, err := loadFromDisk(configPath)
	if err != nil {
		return fmt.Errorf("error loading config file from disk: %w", err)
	}

	updateFn(cfg)

	return save(cfg, configPath)
}

// getConfigPath returns the path to the config file.  Uses the environment variable override if present, else tries
// to use OS config location defaults.
func getConfigPath() (string, error) {
	configPath := os.Getenv("VIDBRIDGE_CONFIG_PATH")
	if configPath != "" {
		return configPath, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "vidbridge", "config.yaml"), nil
}

// createBaseDefaultConfig creates a config with all default values
func createBaseDefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Backend:               "extended",
			Path:                  "mpv",
			Repeat:                "all",
			ConnectTimeoutSeconds: 10,
		},
		DRM: DRMConfig{
			Scheme:      "clearkey",
			MinAPILevel: 33,
		},
		Library: LibraryConfig{},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultSocketDir returns the directory mpv IPC sockets are placed in
func defaultSocketDir() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir
	}
	return os.TempDir()
}

// defaultLogFilePath returns the path to the log file.  Tries to use expected OS location defaults.
func defaultLogFilePath() string {
	var basePath string
	homedir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to logging in the current directory if home directory cannot be determined
		return filepath.Join(".", "vidbridge.log")
	}

	switch runtime.GOOS {
	case "windows":
		// Windows:  %LOCALAPPDATA%\vidbridge\logs
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			basePath = filepath.Join(appData, "vidbridge", "logs")
		} else {
			basePath = filepath.Join(homedir, "AppData", "local", "vidbridge", "logs")
		}
	case "darwin":
		// macOS:  ~/Library/Logs/vidbridge
		basePath = filepath.Join(homedir, "Library", "Logs", "vidbridge")
	default:
		// Linux/BSD:  XDG_STATE_HOME
		if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
			basePath = filepath.Join(xdgState, "vidbridge", "logs")
		} else {
			basePath = filepath.Join(homedir, ".local", "state", "vidbridge", "logs")
		}
	}

	err = os.MkdirAll(basePath, 0700)
	if err != nil {
		return filepath.Join(".", "vidbridge.log")
	}
	return filepath.Join(basePath, "vidbridge.log")
}
