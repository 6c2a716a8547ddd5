// Copyright 2026 Chava Systems
//
// Sentinel errors shared by the store implementations

// Package store implements the ObligationKeyedStore (C6): AEAD
// encryption-at-rest under a key derived from the current obligation set,
// with gated retrieval through the KMS.
//
// Grounded on original_source/chava/kms.py's ObligationKeyedStorage (the
// in-memory MapStore) and pkg/database/client.go's *sql.DB pooling +
// go:embed migrations pattern (the trusted SQLStore). Sentinel errors
// follow pkg/database/errors.go.
package store

import "errors"

// ErrNotFound is returned when a requested obj_id has no stored record.
var ErrNotFound = errors.New("chava/store: object not found")

// ErrCryptographic is returned when the KMS refuses release of the
// cleared-key, or when AEAD decryption fails (tag mismatch).
var ErrCryptographic = errors.New("chava/store: cryptographic failure")
