// Package secrets seals and opens gateway secrets stored in
// merchant_api_credentials. Sealed values look like "enc:<base64>", where the
// payload is a 24 byte nonce followed by a NaCl secretbox.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const prefix = "enc:"

var (
	ErrNoKey     = errors.New("secrets: sealed value but no key configured")
	ErrMalformed = errors.New("secrets: malformed sealed value")
	ErrOpen      = errors.New("secrets: cannot open sealed value")
)

type Box struct {
	key   [32]byte
	ready bool
}

// NewBox parses a hex encoded 32 byte key. An empty key yields a Box that
// passes plain values through and rejects sealed ones.
func NewBox(hexKey string) (*Box, error) {
	b := &Box{}
	if hexKey == "" {
		return b, nil
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("secrets: key: %w", err)
	}
	if len(raw) != len(b.key) {
		return nil, fmt.Errorf("secrets: key must be %d bytes, got %d", len(b.key), len(raw))
	}
	copy(b.key[:], raw)
	b.ready = true
	return b, nil
}

func IsSealed(v string) bool { return strings.HasPrefix(v, prefix) }

func (b *Box) Seal(plain string) (string, error) {
	if !b.ready {
		return "", ErrNoKey
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &b.key)
	return prefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open returns plain values unchanged.
func (b *Box) Open(v string) (string, error) {
	if !IsSealed(v) {
		return v, nil
	}
	if !b.ready {
		return "", ErrNoKey
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, prefix))
	if err != nil || len(raw) < 24+secretbox.Overhead {
		return "", ErrMalformed
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &b.key)
	if !ok {
		return "", ErrOpen
	}
	return string(plain), nil
}
