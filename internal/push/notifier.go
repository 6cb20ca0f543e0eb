package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/chorequest/internal/metrics"
	"github.com/dukerupert/chorequest/internal/model"
)

// Sender delivers a single notification.
type Sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Subscriptions lists parent devices and prunes dead ones.
type Subscriptions interface {
	List() ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// Notifier tells parent devices about things that need them.
type Notifier struct {
	sender Sender
	subs   Subscriptions
	logger *slog.Logger
}

func NewNotifier(sender Sender, subs Subscriptions, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, subs: subs, logger: logger}
}

// ChoreAwaitingVerification fires when a kid checks a chore off.
func (n *Notifier) ChoreAwaitingVerification(kidName, choreName string) {
	n.broadcast(Payload{
		Title: "Chore to check",
		Body:  fmt.Sprintf("%s finished %s", kidName, choreName),
		URL:   "/parent",
		Tag:   "pending-verification",
	})
}

// BaselineReached fires the first time a kid reaches the weekly baseline.
func (n *Notifier) BaselineReached(kidName string, points int) {
	n.broadcast(Payload{
		Title: "Screen time unlocked",
		Body:  fmt.Sprintf("%s reached %d points this week", kidName, points),
		URL:   "/",
		Tag:   "baseline",
	})
}

func (n *Notifier) broadcast(payload Payload) {
	subs, err := n.subs.List()
	if err != nil {
		n.logger.Error("list push subscriptions", "error", err)
		return
	}

	for _, sub := range subs {
		err := n.sender.Send(&sub, payload)
		metrics.RecordPush(err)
		switch {
		case errors.Is(err, ErrExpired):
			n.logger.Info("removing expired push subscription", "id", sub.ID, "device", sub.DeviceName)
			if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("delete expired push subscription", "error", err)
			}
		case err != nil:
			n.logger.Warn("send push", "device", sub.DeviceName, "error", err)
		}
	}
}
