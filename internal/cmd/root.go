// Package cmd implements the codepair command line.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/codepair/internal/cmd/config"
	appconfig "github.com/Iron-Ham/codepair/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "codepair",
	Short: "Pair-programming pipeline for LLM agents",
	Long: `Codepair runs a coder and a reviewer model against each other: a refiner
turns your prompt into a task, an optional debate agrees on a plan, then the
coder writes and the reviewer approves or requests revisions, turn by turn.

Runs can be served over HTTP as a Server-Sent Events stream or executed
locally from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/codepair/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	config.Register(rootCmd)
}

func initConfig() {
	// .env values never override variables already set in the environment
	_ = godotenv.Load()

	// Set defaults first so they're available even without a config file
	appconfig.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(appconfig.ConfigDir())
		viper.AddConfigPath(".")
	}

	// e.g., CODEPAIR_PIPELINE_MAX_TURNS for pipeline.max_turns
	appconfig.BindEnv(viper.GetViper())

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
