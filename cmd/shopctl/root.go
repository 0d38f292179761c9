package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/shopassist/internal/version"
	shopassist "github.com/kailas-cloud/shopassist/pkg/sdk"
)

var (
	serverURL string
	apiKey    string
	userID    string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "shopctl",
	Short:         "Command-line client for the shopassist API",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("SHOPASSIST_URL", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("SHOPASSIST_API_KEY"), "API key")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", os.Getenv("SHOPASSIST_USER_ID"), "shopper id sent as X-User-ID")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 90*time.Second, "request timeout")
}

func newClient() (*shopassist.Client, error) {
	return shopassist.New(serverURL,
		shopassist.WithAPIKey(apiKey),
		shopassist.WithUserID(userID),
		shopassist.WithTimeout(timeout),
		shopassist.WithUserAgent("shopctl/"+version.Version),
	)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
