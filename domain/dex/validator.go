package dex

import "crypto/ed25519"

// MaxProofSize bounds the proof bytes an order may carry. Admission rejects
// anything larger, which also keeps proofs inside the uint16 length fields
// of the persisted snapshot layout.
const MaxProofSize = 1024

// SignatureValidator verifies an order's proof as an ed25519 signature by
// the sender's key over the order's content hash. It implements
// OrderValidator.
type SignatureValidator struct{}

// Verify checks the order's proof against its sender and id.
func (SignatureValidator) Verify(o *Order) error {
	if len(o.Proof) != ed25519.SignatureSize {
		return Validationf("proof must be %d bytes, got %d", ed25519.SignatureSize, len(o.Proof))
	}
	id := o.ID()
	if !ed25519.Verify(ed25519.PublicKey(o.Sender[:]), id[:], o.Proof) {
		return Validationf("order proof does not verify for sender %s", o.Sender)
	}
	return nil
}
