package service

import (
	"context"
	"encoding/json"
	"fmt"

	"cycle-backend/internal/logger"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// CardIntent is a provider-side payment the app confirms with ClientSecret.
type CardIntent struct {
	ID           string
	ClientSecret string
}

// CardEvent is a verified webhook delivery reduced to what settlement needs.
type CardEvent struct {
	Type     string
	IntentID string
}

const (
	CardEventSucceeded = "payment_intent.succeeded"
	CardEventFailed    = "payment_intent.payment_failed"
)

// CardGateway abstracts the card processor.
type CardGateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*CardIntent, error)
	ParseWebhook(payload []byte, signature string) (*CardEvent, error)
}

type stripeGateway struct {
	client        *stripe.Client
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) CardGateway {
	return &stripeGateway{client: stripe.NewClient(secretKey), webhookSecret: webhookSecret}
}

func (g *stripeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*CardIntent, error) {
	logger.ExternalServiceCall("stripe", "PaymentIntents.Create", "amount", amountMinor, "currency", currency)
	pi, err := g.client.V1PaymentIntents.Create(ctx, &stripe.PaymentIntentCreateParams{
		Amount:             stripe.Int64(amountMinor),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Metadata:           metadata,
	})
	logger.ExternalServiceResult("stripe", "PaymentIntents.Create", err)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &CardIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *stripeGateway) ParseWebhook(payload []byte, signature string) (*CardEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	out := &CardEvent{Type: string(event.Type)}
	switch out.Type {
	case CardEventSucceeded, CardEventFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.IntentID = pi.ID
	}
	return out, nil
}
