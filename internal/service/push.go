package service

import (
	"context"
	"fmt"

	"cycle-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type firebasePushSender struct {
	client *messaging.Client
}

// NewFirebasePushSender initializes FCM from a service-account file.
func NewFirebasePushSender(ctx context.Context, credentialsFile string) (PushSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return &firebasePushSender{client: client}, nil
}

func (p *firebasePushSender) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	message := &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:   data,
		Tokens: tokens,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	logger.ExternalServiceCall("fcm", "SendEachForMulticast", "tokens", len(tokens))
	resp, err := p.client.SendEachForMulticast(ctx, message)
	logger.ExternalServiceResult("fcm", "SendEachForMulticast", err)
	if err != nil {
		return nil, fmt.Errorf("error sending multicast message: %w", err)
	}

	var invalid []string
	for idx, r := range resp.Responses {
		if r.Success {
			continue
		}
		if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
			invalid = append(invalid, tokens[idx])
		}
		logger.Warn("Push delivery failed", "tokenIndex", idx, "error", r.Error)
	}
	if resp.SuccessCount == 0 {
		return invalid, fmt.Errorf("push delivery failed for all %d tokens", len(tokens))
	}
	return invalid, nil
}

type noopPushSender struct{}

// NewNoopPushSender is used when Firebase is not configured; every push fails.
func NewNoopPushSender() PushSender {
	return noopPushSender{}
}

func (noopPushSender) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	return nil, fmt.Errorf("push notifications are not configured")
}
