// Package notify delivers ledger events to downstream consumers. Delivery
// is fire-and-forget: a failed publish is logged and counted but never
// reaches the ledger caller.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/metrics"
	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/baharkarakas/prepaid-ledger/internal/worker"
)

// Event is published after a committed ledger mutation. Type doubles as
// the routing key (ledger.charge, ledger.deduct, ledger.cancel).
type Event struct {
	Type                  string                 `json:"type"`
	AccountID             string                 `json:"account_id"`
	CustomerID            string                 `json:"customer_id"`
	TransactionID         string                 `json:"transaction_id"`
	Kind                  models.TransactionKind `json:"kind"`
	Amount                int64                  `json:"amount"`
	Balance               int64                  `json:"balance"`
	OriginalTransactionID *string                `json:"original_transaction_id,omitempty"`
	OccurredAt            time.Time              `json:"occurred_at"`
}

// EventFor builds the event for a stored transaction.
func EventFor(accountID string, t models.Transaction) Event {
	return Event{
		Type:                  "ledger." + strings.ToLower(string(t.Kind)),
		AccountID:             accountID,
		CustomerID:            t.CustomerID,
		TransactionID:         t.ID,
		Kind:                  t.Kind,
		Amount:                t.Amount,
		Balance:               t.BalanceAfter,
		OriginalTransactionID: t.OriginalTransactionID,
		OccurredAt:            t.CreatedAt,
	}
}

type Notifier interface {
	Notify(ev Event)
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(Event) {}

// Dispatcher hands events to a worker pool which publishes them.
type Dispatcher struct {
	pool    *worker.Pool
	pub     Publisher
	log     *slog.Logger
	timeout time.Duration
}

func NewDispatcher(pool *worker.Pool, pub Publisher, log *slog.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{pool: pool, pub: pub, log: log, timeout: timeout}
}

func (d *Dispatcher) Notify(ev Event) {
	ok := d.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.pub.Publish(ctx, ev.Type, ev); err != nil {
			metrics.NotificationsFailed.Inc()
			d.log.Warn("notification publish failed", "type", ev.Type, "transaction_id", ev.TransactionID, "err", err)
		}
	})
	if !ok {
		metrics.NotificationsFailed.Inc()
		d.log.Warn("notification dropped, queue full", "type", ev.Type, "transaction_id", ev.TransactionID)
	}
}
