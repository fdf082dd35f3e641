package dex

import (
	"encoding/base64"
	"fmt"
)

// Text marshaling for the identifier types, so they can be used directly in
// JSON bodies and as JSON map keys.

func (a Asset) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Asset) UnmarshalText(b []byte) error {
	parsed, err := ParseAsset(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (id OrderID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *OrderID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrderID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PublicKey) UnmarshalText(b []byte) error {
	raw, err := base64.RawURLEncoding.DecodeString(string(b))
	if err != nil || len(raw) != PublicKeySize {
		return Validationf("bad public key %q", string(b))
	}
	copy(pk[:], raw)
	return nil
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	switch string(b) {
	case "buy":
		*s = Buy
	case "sell":
		*s = Sell
	default:
		return Validationf("bad side %q", string(b))
	}
	return nil
}

func (t OrderType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *OrderType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "limit":
		*t = Limit
	case "market":
		*t = Market
	default:
		return Validationf("bad order type %q", string(b))
	}
	return nil
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *OrderStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Accepted":
		*s = StatusAccepted
	case "PartiallyFilled":
		*s = StatusPartiallyFilled
	case "Filled":
		*s = StatusFilled
	case "Cancelled":
		*s = StatusCancelled
	case "NotFound":
		*s = StatusNotFound
	default:
		return fmt.Errorf("bad order status %q", string(b))
	}
	return nil
}
