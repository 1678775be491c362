// Package cmd provides the command-line interface of cosim.
package cmd

import (
	"github.com/sarchlab/cosim/config"
	"github.com/sarchlab/cosim/simulation"
	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cosim",
	Short: "cosim drives native device models without a hardware simulator.",
	Long: `cosim loads the device models that a hardware simulator would ` +
		`drive through the bdpi library and runs them from the command line, ` +
		`optionally against a software model of the design under test.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a YAML configuration file")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func buildSimulation(cmd *cobra.Command) (*simulation.Simulation, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	return simulation.MakeBuilder().
		WithConfig(cfg).
		WithLogWriter(cmd.ErrOrStderr()).
		Build()
}
