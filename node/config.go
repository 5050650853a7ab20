package node

import (
	"path/filepath"
	"runtime"
)

type Config struct {
	// Name refers the name of node's instance
	Name string `toml:"-"`

	// Version should be set to the version number of the program.
	Version string `toml:"-"`

	// DataDir is the root folder that store data and configs
	DataDir string
}

func (c *Config) name() string {
	if c.Name == "" {
		panic("empty node name, set Config.Name")
	}
	return c.Name
}

// NodeName returns the node's complete name
func (c *Config) NodeName() string {
	name := c.name()
	if c.Version != "" {
		name += "/v" + c.Version
	}
	name += "/" + runtime.GOOS + "-" + runtime.GOARCH
	name += "/" + runtime.Version()
	return name
}

// ResolvePath resolves path in the instance directory.
func (c *Config) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.instanceDir(), path)
}

func (c *Config) instanceDir() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, c.Name)
}
