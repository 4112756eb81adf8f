package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Darshan-360/service-checkout/internal/application"
	"github.com/Darshan-360/service-checkout/internal/client"
	"github.com/Darshan-360/service-checkout/internal/domain/checkout"
	"github.com/spf13/cobra"
)

func tripFlags(cmd *cobra.Command) {
	cmd.Flags().String("trip-id", "", "Trip id")
	cmd.Flags().String("trip-title", "", "Trip title")
}

func tripFromFlags(cmd *cobra.Command) *checkout.TripRef {
	id, _ := cmd.Flags().GetString("trip-id")
	title, _ := cmd.Flags().GetString("trip-title")
	if id == "" && title == "" {
		return nil
	}
	return &checkout.TripRef{ID: id, Title: title}
}

// checkoutFromFlags rebuilds the handle Begin returned from --order, --amount and --currency.
func checkoutFromFlags(cmd *cobra.Command, userID string) (*client.Checkout, error) {
	orderID, _ := cmd.Flags().GetString("order")
	if orderID == "" {
		return nil, errors.New("--order is required")
	}
	co := &client.Checkout{
		Order:  application.OrderRef{ID: orderID},
		Trip:   tripFromFlags(cmd),
		UserID: userID,
	}
	if cmd.Flags().Changed("amount") {
		amount, _ := cmd.Flags().GetInt64("amount")
		co.Order.Amount = &amount
	}
	co.Order.Currency, _ = cmd.Flags().GetString("currency")
	return co, nil
}

func createOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-order",
		Short: "Create a gateway order and record the pending booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			amount, _ := cmd.Flags().GetInt64("amount")
			currency, _ := cmd.Flags().GetString("currency")
			receipt, _ := cmd.Flags().GetString("receipt")
			req := application.CreateOrderRequest{
				Currency: currency,
				Receipt:  receipt,
				Trip:     tripFromFlags(cmd),
				UserID:   s.cfg.UserID,
			}
			if amount != 0 {
				req.Amount = &amount
			}

			_, res, report, err := s.flow.Begin(cmd.Context(), req)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().Int64P("amount", "a", 0, "Amount in minor units")
	cmd.Flags().StringP("currency", "c", "", "Currency (default INR)")
	cmd.Flags().String("receipt", "", "Receipt reference")
	tripFlags(cmd)

	return cmd
}

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a gateway confirmation and mark the booking paid",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			co, err := checkoutFromFlags(cmd, s.cfg.UserID)
			if err != nil {
				return err
			}
			paymentID, _ := cmd.Flags().GetString("payment-id")
			sig, _ := cmd.Flags().GetString("signature")
			if paymentID == "" || sig == "" {
				return errors.New("--payment-id and --signature are required")
			}

			res, report, err := s.flow.Complete(cmd.Context(), co, application.GatewayConfirmation{
				PaymentID: paymentID,
				OrderID:   co.Order.ID,
				Signature: sig,
			})
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().String("order", "", "Gateway order id")
	cmd.Flags().Int64("amount", 0, "Order amount in minor units")
	cmd.Flags().String("currency", "", "Order currency")
	cmd.Flags().String("payment-id", "", "Gateway payment id")
	cmd.Flags().String("signature", "", "Gateway signature")
	tripFlags(cmd)

	return cmd
}

func failCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fail",
		Short: "Record a failed or cancelled checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			co, err := checkoutFromFlags(cmd, s.cfg.UserID)
			if err != nil {
				return err
			}
			var failure json.RawMessage
			if raw, _ := cmd.Flags().GetString("failure"); raw != "" {
				if !json.Valid([]byte(raw)) {
					return fmt.Errorf("--failure is not valid JSON")
				}
				failure = json.RawMessage(raw)
			}

			res, report, err := s.flow.Fail(cmd.Context(), co, failure)
			printReport(cmd, report)
			if err != nil {
				if report.Wrote() {
					fmt.Fprintf(cmd.ErrOrStderr(), "service unreachable, failure recorded locally: %v\n", err)
					return nil
				}
				return err
			}
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().String("order", "", "Gateway order id")
	cmd.Flags().Int64("amount", 0, "Order amount in minor units")
	cmd.Flags().String("currency", "", "Order currency")
	cmd.Flags().String("failure", "", "Gateway failure details as JSON")
	tripFlags(cmd)

	return cmd
}

func bookingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bookings",
		Short: "List the user's bookings, including local copies",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.cfg.UserID == "" {
				return errors.New("--user-id is required")
			}
			lister := client.NewBookingLister(s.store, s.shadow, s.logger)
			return printJSON(cmd, lister.ListBookings(cmd.Context(), s.cfg.UserID))
		},
	}
}
