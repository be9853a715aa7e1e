package config

import (
	"os"
	"strconv"
	"strings"
)

type envVar struct {
	name  string
	desc  string
	apply func(*Config, string)
}

var supportedEnvVars = []envVar{
	{
		// Only here for documentation purposes.  Does not override any values in the config as this environment variable
		// points to where the config should be loaded.  It is handled prior to loading the config.
		name:  "VIDBRIDGE_CONFIG_PATH",
		desc:  "Sets the path to the config file.  Default: OS-specific config directory",
		apply: func(c *Config, s string) {}, // Special case, no-op
	},
	{
		name:  "VIDBRIDGE_CONFIG_PLAYER_BACKEND",
		desc:  "Sets the playback backend.  Should be one of `platform` or `extended`.  Default: extended",
		apply: func(c *Config, s string) { c.Player.Backend = s },
	},
	{
		name:  "VIDBRIDGE_CONFIG_PLAYER_PATH",
		desc:  "Sets the path to the mpv binary.  Default: mpv",
		apply: func(c *Config, s string) { c.Player.Path = s },
	},
	{
		name:  "VIDBRIDGE_CONFIG_PLAYER_ARGS",
		desc:  "Sets additional mpv arguments.  Default: None",
		apply: func(c *Config, s string) { c.Player.Args = s },
	},
	{
		name:  "VIDBRIDGE_CONFIG_PLAYER_SOCKET_DIR",
		desc:  "Sets the directory mpv IPC sockets are created in.  Default: XDG_RUNTIME_DIR or the temp dir",
		apply: func(c *Config, s string) { c.Player.SocketDir = s },
	},
	{
		name:  "VIDBRIDGE_CONFIG_PLAYER_REPEAT",
		desc:  "Sets the extended backend repeat mode.  One of: all, one, off.  Default: all",
		apply: func(c *Config, s string) { c.Player.Repeat = s },
	},
	{
		name: "VIDBRIDGE_CONFIG_PLAYER_NO_WINDOW",
		desc: "Stops mpv opening its own window.  Default: false",
		apply: func(c *Config, s string) {
			if v, err := strconv.ParseBool(s); err == nil {
				c.Player.NoWindow = v
			}
		},
	},
	{
		name:  "VIDBRIDGE_CONFIG_DRM_SCHEME",
		desc:  "Sets the DRM scheme requested for DRM sources.  One of: clearkey, widevine, playready.  Default: clearkey",
		apply: func(c *Config, s string) { c.DRM.Scheme = strings.ToLower(s) },
	},
	{
		name:  "VIDBRIDGE_CONFIG_DRM_LICENSE_URL",
		desc:  "Sets the DRM license server URL.  Default: None",
		apply: func(c *Config, s string) { c.DRM.LicenseURL = s },
	},
	{
		name: "VIDBRIDGE_CONFIG_DRM_MIN_API_LEVEL",
		desc: "Sets the minimum engine API level required for DRM playback.  Default: 33",
		apply: func(c *Config, s string) {
			if v, err := strconv.Atoi(s); err == nil {
				c.DRM.MinAPILevel = v
			}
		},
	},
	{
		name:  "VIDBRIDGE_CONFIG_LIBRARY_ASSET_DIR",
		desc:  "Sets the directory asset:// locators are resolved against.  Default: None",
		apply: func(c *Config, s string) { c.Library.AssetDir = s },
	},
	{
		name:  "VIDBRIDGE_CONFIG_LIBRARY_CATALOG_URL",
		desc:  "Sets the GraphQL endpoint of a remote media catalog.  Default: None",
		apply: func(c *Config, s string) { c.Library.CatalogURL = s },
	},
	{
		name:  "VIDBRIDGE_CONFIG_LIBRARY_CATALOG_TOKEN",
		desc:  "Sets the bearer token sent to the remote media catalog.  Default: None",
		apply: func(c *Config, s string) { c.Library.CatalogToken = s },
	},
	{
		name:  "VIDBRIDGE_CONFIG_LOGGING_LEVEL",
		desc:  "Sets the logging level.  One of: trace, debug, info, warn, error.  Default: info",
		apply: func(c *Config, s string) { c.Logging.Level = s },
	},
	{
		name:  "VIDBRIDGE_CONFIG_LOGGING_FILE_PATH",
		desc:  "Sets the logging file path, or - for stderr.  Default: OS-specific",
		apply: func(c *Config, s string) { c.Logging.FilePath = s },
	},
}

func applyEnvVarOverrides(c *Config) {
	for _, envVar := range supportedEnvVars {
		if value := os.Getenv(envVar.name); value != "" {
			envVar.apply(c, value)
		}
	}
}
