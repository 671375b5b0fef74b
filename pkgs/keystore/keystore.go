// Package keystore stages LoRaWAN credentials (AppKey, NwkSKey, AppSKey) on
// disk between CLI invocations without writing them in the clear. It seals
// profile bytes to a locally-generated static keypair using the Noise
// Protocol's one-way "N" pattern, the same flynn/noise primitive used
// elsewhere in the pack for session encryption, repurposed here as a
// sealed-box rather than a live handshake.
package keystore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/flynn/noise"
)

var defaultCipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherAESGCM, noise.HashSHA256)

const keyFileLen = 64 // 32-byte private scalar + 32-byte public key

var (
	ErrSealFailed   = errors.New("keystore: seal failed")
	ErrUnsealFailed = errors.New("keystore: unseal failed")
	ErrShortBuffer  = errors.New("keystore: truncated sealed profile")
)

// Store owns a long-term Noise static keypair persisted at keyPath. Sealing
// is one-way: only the holder of the private key (this Store, or a copy of
// the key file) can unseal.
type Store struct {
	keyPath string
	keypair noise.DHKey
}

// Open loads the keypair at keyPath, generating and persisting a fresh one
// (mode 0600) if the file does not exist yet.
func Open(keyPath string) (*Store, error) {
	raw, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		kp, genErr := noise.DH25519.GenerateKeypair(nil)
		if genErr != nil {
			return nil, fmt.Errorf("keystore: generate keypair: %w", genErr)
		}
		if writeErr := persist(keyPath, kp); writeErr != nil {
			return nil, writeErr
		}
		return &Store{keyPath: keyPath, keypair: kp}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: read %s: %w", keyPath, err)
	}
	if len(raw) != keyFileLen {
		return nil, fmt.Errorf("keystore: %s: corrupt key file", keyPath)
	}

	kp := noise.DHKey{Private: raw[:32], Public: raw[32:]}
	return &Store{keyPath: keyPath, keypair: kp}, nil
}

func persist(path string, kp noise.DHKey) error {
	buf := make([]byte, 0, keyFileLen)
	buf = append(buf, kp.Private...)
	buf = append(buf, kp.Public...)
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return fmt.Errorf("keystore: persist keypair: %w", err)
	}
	return nil
}

// Seal encrypts plaintext to this store's own public key and prepends a
// 4-byte big-endian length.
func (s *Store) Seal(plaintext []byte) ([]byte, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite: defaultCipherSuite,
		Pattern:     noise.HandshakeN,
		Initiator:   true,
		PeerStatic:  s.keypair.Public,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealFailed, err)
	}
	msg, _, _, err := hs.WriteMessage(nil, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealFailed, err)
	}

	out := make([]byte, 4, 4+len(msg))
	binary.BigEndian.PutUint32(out, uint32(len(msg)))
	return append(out, msg...), nil
}

// Unseal reverses Seal using this store's private key.
func (s *Store) Unseal(sealed []byte) ([]byte, error) {
	if len(sealed) < 4 {
		return nil, ErrShortBuffer
	}
	length := int(binary.BigEndian.Uint32(sealed[:4]))
	if len(sealed) < 4+length {
		return nil, ErrShortBuffer
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   defaultCipherSuite,
		Pattern:       noise.HandshakeN,
		Initiator:     false,
		StaticKeypair: s.keypair,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}
	plaintext, _, _, err := hs.ReadMessage(nil, sealed[4:4+length])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}
	return plaintext, nil
}

// SealToFile seals plaintext and writes it to path (mode 0600).
func (s *Store) SealToFile(path string, plaintext []byte) error {
	sealed, err := s.Seal(plaintext)
	if err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o600)
}

// UnsealFromFile reads and unseals the profile staged at path.
func (s *Store) UnsealFromFile(path string) ([]byte, error) {
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.Unseal(sealed)
}
