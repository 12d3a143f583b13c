// stripecheck is a development utility for inspecting Stripe billing
// state with the configured credentials. Useful for verifying a price
// id or poking at a subscription the reconciler disagrees with.
//
//	stripecheck -session cs_test_...
//	stripecheck -subscription sub_...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tickerdeck/tickerdeck/internal"
	"github.com/tickerdeck/tickerdeck/internal/billing"
)

func run() error {
	sessionID := flag.String("session", "", "checkout session id to fetch")
	subscriptionID := flag.String("subscription", "", "subscription id to fetch")
	flag.Parse()

	if *sessionID == "" && *subscriptionID == "" {
		flag.Usage()
		return fmt.Errorf("one of -session or -subscription is required")
	}

	cfg, err := internal.NewConfig()
	if err != nil {
		return err
	}
	if !cfg.Stripe.Enabled() {
		return fmt.Errorf("STRIPE_SECRET_KEY not set")
	}

	provider, err := billing.NewStripeProvider(billing.StripeConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var out any
	if *sessionID != "" {
		out, err = provider.GetCheckoutSession(ctx, *sessionID)
	} else {
		out, err = provider.GetSubscription(ctx, *subscriptionID)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
