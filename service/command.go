package service

import (
	"context"
	"encoding/json"

	"mako/domain/dex"
)

// Kind discriminates command log entries.
type Kind string

const (
	KindPlace     Kind = "place"
	KindCancel    Kind = "cancel"
	KindCancelAll Kind = "cancelAll"
)

// Command is one entry of the ordered command log. Exactly the fields the
// kind requires are set; Validate rejects the rest.
type Command struct {
	Kind      Kind           `json:"kind"`
	Timestamp int64          `json:"timestamp"` // unix millis, stamped at enqueue
	Order     *dex.Order     `json:"order,omitempty"`
	OrderID   *dex.OrderID   `json:"orderId,omitempty"`
	Sender    *dex.PublicKey `json:"sender,omitempty"`
	Pair      *dex.AssetPair `json:"pair,omitempty"`
}

// Validate checks the kind-specific required fields.
func (c *Command) Validate() error {
	switch c.Kind {
	case KindPlace:
		if c.Order == nil {
			return dex.Validationf("place command without order")
		}
	case KindCancel:
		if c.OrderID == nil || c.Pair == nil {
			return dex.Validationf("cancel command needs order id and pair")
		}
	case KindCancelAll:
		if c.Sender == nil {
			return dex.Validationf("cancelAll command without sender")
		}
	default:
		return dex.Validationf("unknown command kind %q", c.Kind)
	}
	return nil
}

// EncodeCommand serializes a command for the log.
func EncodeCommand(c *Command) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

// DecodeCommand parses a log record payload.
func DecodeCommand(data []byte) (*Command, error) {
	c := &Command{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, dex.Validationf("malformed command: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// RawCommand is one record read from the command log: the payload and the
// log offset that orders it.
type RawCommand struct {
	Offset int64
	Data   []byte
}

// CommandSource is the ordered command log consumer. Next blocks until a
// record arrives or ctx ends.
type CommandSource interface {
	Next(ctx context.Context) (RawCommand, error)
	Close() error
}

// EventPublisher receives outbound engine events. Enqueue must not block
// the caller; publishers buffer and flush on their own schedule.
type EventPublisher interface {
	Enqueue(key string, payload []byte)
}

// Event is one outbound engine event, keyed by pair.
type Event struct {
	Type    string           `json:"type"` // "trade", "order", "rejected"
	Pair    string           `json:"pair"`
	Offset  int64            `json:"offset"`
	Trade   *dex.Trade       `json:"trade,omitempty"`
	OrderID *dex.OrderID     `json:"orderId,omitempty"`
	Status  *dex.OrderStatus `json:"status,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}
