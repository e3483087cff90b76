package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/leshachaplin/sitetrack/app"
	"github.com/leshachaplin/sitetrack/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sitetrack",
	Short: "Consent-gated analytics gateway",
	Long: `sitetrack receives page views and marketing events from the website,
drops everything the visitor has not consented to, and streams the rest
through Redpanda into ClickHouse and the GA4 Measurement Protocol.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracking HTTP server and hit pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		app.New(func() (config.Config, error) {
			return config.Load(configPath)
		}).Start()
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the config file (yaml, json or toml)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
