package auth

import (
	"context"
	"fmt"
	"time"
)

// CodeMessage is everything a notifier needs to deliver a one-time code.
type CodeMessage struct {
	Recipient Identity
	FirstName string
	Code      string
	Purpose   Purpose
	TTL       time.Duration
	Locale    string
}

type Notifier interface {
	SendCode(ctx context.Context, msg CodeMessage) error
}

// ChannelNotifier routes a message to the sender for the recipient's channel.
type ChannelNotifier struct {
	Email Notifier
	SMS   Notifier
}

func (n ChannelNotifier) SendCode(ctx context.Context, msg CodeMessage) error {
	var target Notifier
	switch msg.Recipient.Channel {
	case ChannelEmail:
		target = n.Email
	case ChannelPhone:
		target = n.SMS
	}
	if target == nil {
		return fmt.Errorf("no notifier for channel %q", msg.Recipient.Channel)
	}
	return target.SendCode(ctx, msg)
}
