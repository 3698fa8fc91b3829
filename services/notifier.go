package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"closetapi/models"
)

type Notifier interface {
	Notify(ctx context.Context, userID uint, title, body string, data map[string]string) error
}

type PushTokenLister interface {
	ActiveTokens(ctx context.Context, userID uint) ([]models.UserPushToken, error)
}

// MessageSender is the part of *messaging.Client we use.
type MessageSender interface {
	SendEach(ctx context.Context, messages []*messaging.Message) (*messaging.BatchResponse, error)
}

type FirebaseNotifier struct {
	sender MessageSender
	tokens PushTokenLister
}

func NewFirebaseNotifier(ctx context.Context, app *firebase.App, tokens PushTokenLister) (*FirebaseNotifier, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return NewNotifier(client, tokens), nil
}

func NewNotifier(sender MessageSender, tokens PushTokenLister) *FirebaseNotifier {
	return &FirebaseNotifier{sender: sender, tokens: tokens}
}

func stringMapToInterfaceMap(stringMap map[string]string) map[string]interface{} {
	if stringMap == nil {
		return nil
	}
	interfaceMap := make(map[string]interface{}, len(stringMap))
	for key, value := range stringMap {
		interfaceMap[key] = value
	}
	return interfaceMap
}

func pushMessage(token models.UserPushToken, title, body string, data map[string]string) *messaging.Message {
	return &messaging.Message{
		Token: token.Token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		APNS: &messaging.APNSConfig{
			FCMOptions: &messaging.APNSFCMOptions{
				AnalyticsLabel: "closet",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Alert: &messaging.ApsAlert{
						Title: title,
						Body:  body,
					},
					Sound: "default",
				},
				CustomData: stringMapToInterfaceMap(data),
			},
		},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Priority:  messaging.PriorityMax,
				ChannelID: "closet-high-priority",
			},
			Data: data,
		},
	}
}

// Notify sends to every active token of the user. Per-token failures are
// collected into one error; a user without tokens is not an error.
func (n *FirebaseNotifier) Notify(ctx context.Context, userID uint, title, body string, data map[string]string) error {
	tokens, err := n.tokens.ActiveTokens(ctx, userID)
	if err != nil {
		return fmt.Errorf("list push tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	messages := make([]*messaging.Message, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, pushMessage(token, title, body, data))
	}

	batch, err := n.sender.SendEach(ctx, messages)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}

	var result *multierror.Error
	for i, resp := range batch.Responses {
		if resp == nil || resp.Success {
			continue
		}
		result = multierror.Append(result, fmt.Errorf("token %d: %w", tokens[i].ID, resp.Error))
	}
	log.Info().Uint("user", userID).Int("sent", len(messages)).Int("failed", batch.FailureCount).Msg("[Push] notifications sent")
	return result.ErrorOrNil()
}
