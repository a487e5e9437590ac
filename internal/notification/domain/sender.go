package domain

import (
	"context"
	"errors"
	"fmt"
)

//go:generate mockgen -source=sender.go -destination=../mocks/mock_sender.go -package=mocks

// Sender delivers a message to one recipient over one channel.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, recipient Recipient, msg Message) error
}

// Senders is the set of channels the dispatcher can use.
type Senders []Sender

// DeliveryError is a channel failure. It is reported per recipient and
// channel, never returned from a send.
type DeliveryError struct {
	Channel Channel
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

var ErrNoEmail = errors.New("recipient_has_no_email")
