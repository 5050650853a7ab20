package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/coschain/cobra"
	"github.com/coschain/hivebridge/config"
)

var InitCmd = func() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "write a default configuration file into the data directory",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			initConf(cmd, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration")
	return cmd
}

func initConf(cmd *cobra.Command, force bool) {
	out := cmd.OutOrStdout()
	cfg := *configOf(cmd)
	if err := config.EnsureDataDir(cfg.DataDir); err != nil {
		fmt.Fprintln(out, err)
		return
	}
	name := config.ConfigName + "." + config.ConfigType
	path := filepath.Join(cfg.DataDir, name)
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintln(out, fmt.Sprintf("%s already exists, use --force to overwrite", path))
		return
	}
	if err := config.WriteConfigFile(cfg.DataDir, name, cfg, 0600); err != nil {
		fmt.Fprintln(out, err)
		return
	}
	fmt.Fprintln(out, "wrote", path)
}
