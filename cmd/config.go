package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/linkprobe/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after defaults, the config file, LINKPROBE_*
environment variables and flags have been merged.

Examples:
  linkprobe config
  LINKPROBE_ARP_TIMEOUT=2s linkprobe config -c linkprobe.yml --backend packet`,
	Args: exactArgs(0, "no arguments"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig(cfg, cmd.OutOrStdout())
	},
}

func runConfig(cfg *config.Config, w io.Writer) error {
	out, err := cfg.Render()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
