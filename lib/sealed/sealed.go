// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"

	"github.com/bureau-foundation/decommission/lib/secret"
)

// magic is the first line of every binary age file.
const magic = "age-encryption.org/v1\n"

// ErrNoRecipients is returned by Seal when no recipient is given.
var ErrNoRecipients = errors.New("sealed: at least one recipient is required")

// Keypair is an x25519 identity. PublicKey is safe to share; PrivateKey
// must be closed when no longer needed.
type Keypair struct {
	PrivateKey *secret.Buffer
	PublicKey  string
}

// Close releases the private key.
func (k *Keypair) Close() error {
	if k.PrivateKey == nil {
		return nil
	}
	return k.PrivateKey.Close()
}

// GenerateKeypair creates a new x25519 identity.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating identity: %w", err)
	}
	privateKey, err := secret.FromString(identity.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting identity: %w", err)
	}
	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// ParseRecipients validates age1... public keys.
func ParseRecipients(publicKeys []string) ([]age.Recipient, error) {
	recipients := make([]age.Recipient, 0, len(publicKeys))
	for _, key := range publicKeys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("sealed: recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

// Seal returns a writer that encrypts everything written to it into
// destination for the given public keys. The caller must Close the
// writer to flush the final chunk.
func Seal(destination io.Writer, publicKeys []string) (io.WriteCloser, error) {
	if len(publicKeys) == 0 {
		return nil, ErrNoRecipients
	}
	recipients, err := ParseRecipients(publicKeys)
	if err != nil {
		return nil, err
	}
	writer, err := age.Encrypt(destination, recipients...)
	if err != nil {
		return nil, fmt.Errorf("sealed: starting encryption: %w", err)
	}
	return writer, nil
}

// SealWithPassphrase is Seal for a scrypt passphrase recipient. age does
// not allow a passphrase recipient to be mixed with other recipients.
func SealWithPassphrase(destination io.Writer, passphrase *secret.Buffer) (io.WriteCloser, error) {
	recipient, err := age.NewScryptRecipient(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: passphrase recipient: %w", err)
	}
	writer, err := age.Encrypt(destination, recipient)
	if err != nil {
		return nil, fmt.Errorf("sealed: starting encryption: %w", err)
	}
	return writer, nil
}

// Open decrypts source with an x25519 private key (AGE-SECRET-KEY-1...)
// or, if the buffer does not hold one, treats it as a passphrase.
// identity is borrowed and not closed.
func Open(source io.Reader, identity *secret.Buffer) (io.Reader, error) {
	var ageIdentity age.Identity
	text := identity.String()
	if strings.HasPrefix(text, "AGE-SECRET-KEY-1") {
		parsed, err := age.ParseX25519Identity(text)
		if err != nil {
			return nil, fmt.Errorf("sealed: parsing identity: %w", err)
		}
		ageIdentity = parsed
	} else {
		parsed, err := age.NewScryptIdentity(text)
		if err != nil {
			return nil, fmt.Errorf("sealed: passphrase identity: %w", err)
		}
		ageIdentity = parsed
	}

	reader, err := age.Decrypt(source, ageIdentity)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	return reader, nil
}

// IsSealed reports whether header begins with the age file magic.
func IsSealed(header []byte) bool {
	return bytes.HasPrefix(header, []byte(magic))
}

// MagicLength is the number of bytes IsSealed needs to see.
const MagicLength = len(magic)
