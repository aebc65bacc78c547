package domain

import (
	"crypto/rsa"
	"strings"
)

// Keypair is the single authoritative signing key of the process. It is built once
// by the key store at startup and only read afterwards.
type Keypair struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
	KeyID      string
}

// CanSign reports whether the pair carries a private key and a key id.
func (k *Keypair) CanSign() bool {
	return k != nil && k.PrivateKey != nil && strings.TrimSpace(k.KeyID) != ""
}

// CanPublish reports whether the pair carries a public key and a key id.
func (k *Keypair) CanPublish() bool {
	return k != nil && k.PublicKey != nil && strings.TrimSpace(k.KeyID) != ""
}
