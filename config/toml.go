package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const configHeader = "# This is a TOML config file.\n# For more information, see https://github.com/toml-lang/toml\n\n"

// WriteConfigFile writes cfg as <configDirPath>/<configName>.
func WriteConfigFile(configDirPath string, configName string, cfg Config, mode os.FileMode) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.MkdirAll(configDirPath, 0700); err != nil {
		return err
	}
	configPath := filepath.Join(configDirPath, configName)
	return ioutil.WriteFile(configPath, append([]byte(configHeader), data...), mode)
}
