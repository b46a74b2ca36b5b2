package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var routeFlag string

var rootCmd = &cobra.Command{
	Use:   "rentdesk",
	Short: "RentDesk - AI assistant for the car rental back office",
	Long: `RentDesk connects the rental back office to a streaming AI assistant.

The assistant looks up customers and pre-fills quick bookings from the
customer directory while the operator stays in control.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&routeFlag, "route", "", "UI route context sent with each request (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
