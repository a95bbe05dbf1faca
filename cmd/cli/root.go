package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var apiBaseURL string

var rootCmd = &cobra.Command{
	Use:   "docwarden-cli",
	Short: "docwarden-cli is the command-line interface for docwarden.",
	Long:  `A CLI for submitting documentation jobs to docwarden and polling their status, over the same HTTP contract the server exposes.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api", "http://localhost:8080", "docwarden HTTP API base URL")

	if err := viper.BindPFlag("API_BASE_URL", rootCmd.PersistentFlags().Lookup("api")); err != nil {
		slog.Error("error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("DOCWARDEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
