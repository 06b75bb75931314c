// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts run archives with age so that an inventory of
// an organization's devices, users, and e-mail addresses is never left
// on disk in the clear.
//
// Archives are sealed either to one or more x25519 recipients (age1...
// public keys, typically the operator's key plus a team escrow key) or
// to a passphrase through age's scrypt recipient. Identities and
// passphrases are held in [secret.Buffer] values and converted to
// strings only when age requires it.
package sealed
