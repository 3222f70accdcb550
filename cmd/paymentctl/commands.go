package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go-checkout/config"
	"go-checkout/log"
	"go-checkout/payment/db"
	"go-checkout/payment/gateway"
	"go-checkout/payment/order"
	"go-checkout/web/middleware"

	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(envFile)
}

func newReconcileCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Restore local records for gateway orders that were never persisted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DSN == "" {
				return config.ErrMissingDSN
			}

			logger, err := log.New(cfg.IsDevelopment())
			if err != nil {
				return err
			}
			defer logger.Sync()

			gdb, err := db.Connect(cfg.DSN)
			if err != nil {
				return err
			}
			if err := db.Sync(gdb); err != nil {
				return err
			}
			rp, err := gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
			if err != nil {
				return err
			}

			report, err := order.NewReconciler(rp, db.NewStore(gdb), logger).
				Sweep(cmd.Context(), time.Now().Add(-since))
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to scan gateway orders")
	return cmd
}

func newSignCmd() *cobra.Command {
	sign := &cobra.Command{
		Use:   "sign",
		Short: "Compute gateway signatures for local testing",
	}

	var orderID, paymentID string
	payment := &cobra.Command{
		Use:   "payment",
		Short: "Signature the checkout returns for order_id|payment_id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.RazorpayKeySecret == "" {
				return config.ErrMissingGatewayCredentials
			}
			fmt.Fprintln(cmd.OutOrStdout(), order.PaymentSignature(cfg.RazorpayKeySecret, orderID, paymentID))
			return nil
		},
	}
	payment.Flags().StringVar(&orderID, "order", "", "gateway order id")
	payment.Flags().StringVar(&paymentID, "payment", "", "gateway payment id")
	payment.MarkFlagRequired("order")
	payment.MarkFlagRequired("payment")

	var file string
	webhook := &cobra.Command{
		Use:   "webhook",
		Short: "Signature of a webhook body, read from --file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.RazorpayWebhookSecret == "" {
				return config.ErrMissingWebhookSecret
			}

			var body []byte
			if file == "" || file == "-" {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), order.Sign(cfg.RazorpayWebhookSecret, body))
			return nil
		},
	}
	webhook.Flags().StringVar(&file, "file", "", "file holding the exact request body")

	sign.AddCommand(payment, webhook)
	return sign
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a caller token for the payment endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return config.ErrMissingJWTSecret
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
