package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configFileName = ".dealdesk"
	envPrefix      = "DEALDESK"

	cfgKeyDataset     = "dataset"
	cfgKeyDefinitions = "definitions"
	cfgKeyLogLevel    = "log_level"
)

// loadConfig reads .dealdesk.yaml from the working directory or $HOME, or
// the file named by --config. Flags beat DEALDESK_* env vars, which beat
// the file. A missing default file is not an error.
func loadConfig(cmd *cobra.Command, path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyDataset, "deals")
	v.SetDefault(cfgKeyLogLevel, "warn")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	for key, flag := range map[string]string{
		cfgKeyDataset:     "dataset",
		cfgKeyDefinitions: "definitions",
		cfgKeyLogLevel:    "log-level",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}
