// Command offers-feed loads a seller's offers listing page by page,
// annotates every offer with a shipping estimate and adds offers to the
// cart.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/cm-offers-feed/pkg/config"
	"github.com/Sternrassler/cm-offers-feed/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "offers-feed",
	Short: "Infinite offers feed with shipping estimates",
	Long: `offers-feed follows the pagination of a marketplace offers listing,
merges every page into one table and shows the cheapest shipping option
per offer.

Example usage:
  offers-feed feed "https://www.cardmarket.com/en/Pokemon/Users/seller/Offers/Singles"
  offers-feed estimate --from Germany --to Finland --tracked
  offers-feed cart <listing-url> 1234567 --amount 2
  offers-feed serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
}

// initConfig loads the configuration and sets up logging.
func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger = logging.NewLogger(logging.ComponentCLI)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
