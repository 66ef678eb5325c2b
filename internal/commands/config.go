package commands

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/shelfhub/shelfclient"
	"github.com/shelfhub/shelfclient/pkg/constants"
)

// LoadConfig reads .shelfctl.yaml from SHELF_CONFIG_PATH or the working
// directory, then lets SHELF_* environment variables and flags override it.
func LoadConfig(v *viper.Viper) (*shelfclient.Config, error) {
	v.SetDefault("endpoint", "ws://localhost:8080")
	v.SetDefault("timeout", constants.DefaultTimeout)
	v.SetDefault("log-level", "warn")
	v.SetConfigName(".shelfctl") // .yaml is implicit
	v.SetEnvPrefix("SHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if override := os.Getenv("SHELF_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	conf := shelfclient.NewConfig(v.GetString("endpoint"))
	conf.Timeout = v.GetDuration("timeout")
	conf.CacheTTL = v.GetDuration("cache-ttl")
	conf.Token = v.GetString("token")
	conf.Principal = v.GetString("principal")
	conf.LogLevel = v.GetString("log-level")
	conf.LogPath = v.GetString("log-path")
	return conf, nil
}
