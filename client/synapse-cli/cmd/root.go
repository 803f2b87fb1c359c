package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "synapse-cli",
	Short: "A CLI client for the Synapse knowledge card service",
	Long:  `A command-line interface for creating knowledge cards from links and documents and browsing topic clusters.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("SYNAPSE_SERVER", "http://localhost:8080"), "card service base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("SYNAPSE_TOKEN"), "bearer token (default $SYNAPSE_TOKEN)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() *apiClient {
	return &apiClient{baseURL: serverURL, token: authToken}
}
