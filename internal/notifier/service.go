package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/shopdhq/shopd/internal/kafka"
	"github.com/shopdhq/shopd/internal/ledger"
	"github.com/shopdhq/shopd/internal/redisx"
)

// Service consumes order events, keeps the Redis status cache warm and
// emits customer-notification log lines. Delivery of the actual email/SMS
// is out of scope; a real sender would hang off notify().
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env ledger.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// dedup via Redis on event_id; redeliveries are expected
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	switch env.EventType {
	case ledger.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[ledger.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cacheStatus(ctx, p.OrderID, ledger.StatusPending)
		s.notify(p.UserID, "order placed", p.OrderID)
	case ledger.EventOrderCancelled:
		p, err := kafkax.UnwrapPayload[ledger.OrderCancelledPayload](env.Payload)
		if err != nil {
			return err
		}
		s.cacheStatus(ctx, p.OrderID, ledger.StatusCancelled)
		s.notify("", "order cancelled", p.OrderID)
	default:
		// ignore unknown event types
	}
	return nil
}

// cacheStatus writes the payload served by the unauthenticated status
// endpoint; it carries the status only, never the cancel reason.
func (s *Service) cacheStatus(ctx context.Context, orderID string, status ledger.Status) {
	b, _ := json.Marshal(map[string]string{"status": string(status)})
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = s.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (s *Service) notify(userID, what, orderID string) {
	slog.Info("notification", "event", what, "order_id", orderID, "user_id", userID)
}
