package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chatooli/chatooli/pkg/config"
	"github.com/chatooli/chatooli/pkg/logger"
	"github.com/chatooli/chatooli/pkg/presenter"
)

var rootCmd = &cobra.Command{
	Use:   "chatooli",
	Short: "Creative coding agent server for designers",
	Long: `Chatooli runs an HTTP orchestration layer where a designer chats with
an agent that builds generative art and interactive sketches directly
in a sandboxed workspace, guided by matchable skill packs.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetLogLevel(viper.GetString("log_level"))
		logger.SetLogFormat(viper.GetString("log_format"))
	},
}

func init() {
	viper.SetEnvPrefix("CHATOOLI")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.chatooli")
	viper.AddConfigPath(".")

	config.SetDefaults(viper.GetViper())

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json)")
	rootCmd.PersistentFlags().String("model", "", "Default model (e.g. claude-sonnet-4-20250514, gpt-4.1)")
	rootCmd.PersistentFlags().String("profile", "", "Configuration profile to apply")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		presenter.Error(err, "command failed")
		os.Exit(1)
	}
}
