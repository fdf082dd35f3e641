package dex

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedOrder(t *testing.T) Order {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	priv := ed25519.NewKeyFromSeed(seed)

	o := testOrder()
	copy(o.Sender[:], priv.Public().(ed25519.PublicKey))
	id := o.ID()
	o.Proof = ed25519.Sign(priv, id[:])
	return o
}

func TestSignatureValidator(t *testing.T) {
	v := SignatureValidator{}

	o := signedOrder(t)
	require.NoError(t, v.Verify(&o))

	// The proof covers the content hash, so any content change breaks it.
	tampered := o
	tampered.Amount++
	assert.ErrorIs(t, v.Verify(&tampered), ErrValidation)

	// A proof by some other key does not authorize the sender.
	forged := o
	forged.Sender[0] ^= 0xff
	id := forged.ID()
	forged.Proof = ed25519.Sign(ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize)), id[:])
	assert.ErrorIs(t, v.Verify(&forged), ErrValidation)

	short := o
	short.Proof = o.Proof[:16]
	assert.ErrorIs(t, v.Verify(&short), ErrValidation)

	missing := o
	missing.Proof = nil
	assert.ErrorIs(t, v.Verify(&missing), ErrValidation)
}
