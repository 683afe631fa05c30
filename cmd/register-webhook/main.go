// Command register-webhook performs the one-time webhook setup: it
// subscribes the relay's callback URL to the payment gateway's
// purchase.paid events and registers the commerce platform's orders/paid
// notification, skipping either when it already exists on the platform side.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"

	appkg "github.com/badixth/chip-in-backend/internal/app"
	"github.com/badixth/chip-in-backend/internal/chip"
	"github.com/badixth/chip-in-backend/internal/shopify"
)

func main() {
	var (
		baseURL   string
		publicKey string
		skipChip  bool
	)
	flag.StringVar(&baseURL, "base-url", "", "public base URL of this relay (e.g. https://relay.example.com)")
	flag.StringVar(&publicKey, "public-key-file", "", "PEM file with the gateway webhook public key")
	flag.BoolVar(&skipChip, "skip-chip", false, "only register the commerce platform webhook")
	flag.Parse()

	if baseURL == "" {
		slog.Error("base URL is required: set --base-url")
		os.Exit(1)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, baseURL, publicKey, skipChip); err != nil {
		slog.Error("webhook registration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("webhook registration completed")
}

func run(ctx context.Context, baseURL, publicKeyFile string, skipChip bool) error {
	cfg, err := appkg.LoadConfig()
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if !skipChip {
		var publicKey string
		if publicKeyFile != "" {
			pem, err := os.ReadFile(publicKeyFile)
			if err != nil {
				return errors.Wrap(err, "read public key")
			}
			publicKey = string(pem)
		}

		gateway := chip.NewClient(chip.Config{
			BaseURL: cfg.ChipAPIURL,
			APIKey:  cfg.ChipAPIKey,
		})
		err = gateway.RegisterWebhook(ctx, &chip.WebhookRegistration{
			Title:     "Chip In Webhook",
			PublicKey: publicKey,
			Events:    []string{chip.EventPurchasePaid},
			Callback:  baseURL + "/chipin-webhook",
		})
		if err != nil {
			return errors.Wrap(err, "register gateway webhook")
		}
		slog.Info("gateway webhook registered", slog.String("callback", baseURL+"/chipin-webhook"))
	}

	platform := shopify.NewClient(shopify.Config{
		StoreURL:    cfg.ShopifyStoreURL,
		AccessToken: cfg.ShopifyAccessToken,
	})
	created, err := platform.EnsureWebhook(ctx, "orders/paid", baseURL+"/shopify-webhook")
	if err != nil {
		return errors.Wrap(err, "register platform webhook")
	}
	if created {
		slog.Info("platform webhook registered", slog.String("address", baseURL+"/shopify-webhook"))
	} else {
		slog.Info("platform webhook already registered")
	}
	return nil
}
