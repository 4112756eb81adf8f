package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "checkoutctl",
		Short:         "Drive a checkout against the service and fill in records it could not write",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(createOrderCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(failCmd())
	rootCmd.AddCommand(bookingsCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
