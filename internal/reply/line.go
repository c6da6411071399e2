package reply

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// LineMessenger pushes messages through the LINE Messaging API. The
// recipient is a LINE user, group or room id.
type LineMessenger struct {
	client *messaging_api.MessagingApiAPI
}

// NewLineMessenger returns a messenger authenticated with channelToken.
// An empty endpoint uses the public LINE API.
func NewLineMessenger(channelToken, endpoint string) (*LineMessenger, error) {
	var opts []messaging_api.MessagingApiAPIOption
	if endpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(endpoint))
	}
	client, err := messaging_api.NewMessagingApiAPI(channelToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &LineMessenger{client: client}, nil
}

func (l *LineMessenger) PushText(ctx context.Context, to, text string) error {
	return l.push(ctx, to, &messaging_api.TextMessage{Text: text})
}

func (l *LineMessenger) PushImage(ctx context.Context, to, imageURL, previewURL string) error {
	return l.push(ctx, to, &messaging_api.ImageMessage{
		OriginalContentUrl: imageURL,
		PreviewImageUrl:    previewURL,
	})
}

// push sends one message. Each call carries a fresh retry key so LINE can
// drop duplicates of a retried request.
func (l *LineMessenger) push(ctx context.Context, to string, msg messaging_api.MessageInterface) error {
	_, err := l.client.WithContext(ctx).PushMessage(
		&messaging_api.PushMessageRequest{
			To:       to,
			Messages: []messaging_api.MessageInterface{msg},
		},
		uuid.NewString(),
	)
	if err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}
