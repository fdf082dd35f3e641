package dex

import "github.com/google/uuid"

// Trade records one match. Produced by the book, never mutated, appended to
// the outbound event stream.
type Trade struct {
	ID        string  `json:"id"`
	TakerID   OrderID `json:"takerId"`
	MakerID   OrderID `json:"makerId"`
	Price     uint64  `json:"price"` // the maker's price
	Amount    uint64  `json:"amount"`
	Timestamp int64   `json:"timestamp"` // unix millis
}

// NewTrade builds a trade record for a single match.
func NewTrade(taker, maker OrderID, price, amount uint64, ts int64) Trade {
	return Trade{
		ID:        uuid.NewString(),
		TakerID:   taker,
		MakerID:   maker,
		Price:     price,
		Amount:    amount,
		Timestamp: ts,
	}
}
