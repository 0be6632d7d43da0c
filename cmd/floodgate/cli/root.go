// Package cli implements the floodgate command tree.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "floodgate",
		Short: "Authentication and API key control plane for your APIs",
		Long: `Floodgate is a self-contained control plane for API access: user accounts
with JWT sessions, API keys with hashed-at-rest secrets, a registry of
upstream services, and an append-only request audit log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./floodgate.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite store (default: ~/.floodgate)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("floodgate")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.floodgate")
	}

	viper.SetEnvPrefix("FLOODGATE")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
