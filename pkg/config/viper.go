// Package config wraps viper with the file and environment layout the
// service uses.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvConfigFile names an explicit config file that replaces the search.
const EnvConfigFile = "CONFIG_FILE"

// Load reads <name>.yaml from the first directory in dirs that holds it and
// overlays environment variables. Keys map to variables by upper-casing and
// replacing dots, behind envPrefix when set: with prefix "PLAYBACK",
// video.base_url is read from PLAYBACK_VIDEO_BASE_URL.
//
// A missing file is not an error; the caller's defaults and the environment
// still apply. A file named by $CONFIG_FILE must exist.
func Load(name, envPrefix string, dirs ...string) (*viper.Viper, error) {
	v := viper.New()

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path := os.Getenv(EnvConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}
