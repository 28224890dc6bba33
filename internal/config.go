package patchbay

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OpenCHAMI/patchbay/internal/util"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/spf13/viper"
)

// LoadConfig() reads the config file into viper. There are some general
// considerations about how this is done with spf13/viper:
//
// 1. An explicit path must exist. Without one, 'config.{yaml,json,toml}' is
// searched in $XDG_CONFIG_HOME/patchbay and the working directory, and a
// missing file is not an error.
// 2. No data is ever written back to the config file.
// 3. Flags and environment variables take precedence over the file. Keys
// map to variables by upper-casing and replacing '.' and '-' with '_', so
// 'netbox.url' is read from NETBOX_URL.
func LoadConfig(path string) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if path != "" {
		dir, filename, ext := util.SplitPathForViper(util.ExpandHome(path))
		viper.AddConfigPath(dir)
		viper.SetConfigName(filename)
		viper.SetConfigType(ext)
	} else {
		viper.AddConfigPath(util.ConfigDir())
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if path == "" {
				return nil
			}
			return fmt.Errorf("config file not found: %w", err)
		}
		return fmt.Errorf("failed to load config file: %w", err)
	}
	return nil
}

// SetDefaults() registers the default of every config key that is not
// also a flag default.
func SetDefaults() {
	viper.SetDefault("netbox.url", "")
	viper.SetDefault("netbox.token", "")
	viper.SetDefault("netbox.token-path", filepath.Join(util.ConfigDir(), "token"))
	viper.SetDefault("netbox.cacert", "")
	viper.SetDefault("netbox.insecure", false)
	viper.SetDefault("netbox.page-size", netbox.DefaultPageSize)
	viper.SetDefault("timeout", 30)
	viper.SetDefault("concurrency", 1)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-file", "")
	viper.SetDefault("cache", filepath.Join(util.DataDir(), "history.db"))
	viper.SetDefault("secrets.file", filepath.Join(util.DataDir(), "secrets.json"))
	viper.SetDefault("daemon.endpoint", "localhost:8080")
	viper.SetDefault("daemon.jwks-url", "")
	viper.SetDefault("daemon.jwt-secret", "")
}
