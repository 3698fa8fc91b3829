package main

import (
	"os"

	"github.com/spf13/cobra"

	"closetapi/config"
	"closetapi/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "stylistctl",
	Short: "Local tooling for the closet stylist",
	Long: `stylistctl runs the stylist conversation in the terminal against a JSON
closet file, and mints development tokens for the API.

Available commands:
  chat   - talk to the stylist using a closet file
  token  - sign a bearer token for a user id`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(config.LogConfig{Level: logLevel})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "zerolog level")
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
