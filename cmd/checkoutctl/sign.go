package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Darshan-360/service-checkout/internal/signature"
	"github.com/spf13/cobra"
)

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [order-id] [payment-id]",
		Short: "Compute the gateway signature for an order and payment (test keys only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				secret = os.Getenv("RAZORPAY_KEY_SECRET")
			}
			if secret == "" {
				return errors.New("--secret or RAZORPAY_KEY_SECRET is required")
			}
			fmt.Fprintln(cmd.OutOrStdout(), signature.Sign(args[0], args[1], secret))
			return nil
		},
	}

	cmd.Flags().String("secret", "", "Gateway key secret")

	return cmd
}
