// Package model defines the typed metadata model shared by every core
// component: schemas, attributes, items, batches, projects, datasets and
// mappers.
package model

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/google/uuid"
)

// UID identifies every entity in the model. All entity ids are UUIDs;
// their canonical external representation is hex-with-hyphens, which is
// exactly what uuid.UUID.String() produces.
type UID = uuid.UUID

// NewUID returns a fresh random identity for entities whose identity is
// not derived deterministically (mappers, mapping items, batches,
// projects, datasets, schemas).
func NewUID() UID {
	return uuid.New()
}

// DeterministicItemUID derives a reproducible uid for an item from
// (dataset_uid, schema_uid, identifier), as allowed by spec.md §6: a
// reproducible uid lets re-ingesting the same metadata be idempotent
// without needing a prior lookup. The operands (the two 16-byte uids
// and an 8-byte FNV hash of identifier) are not multiplied: they are
// concatenated and hashed with SHA-256, and the digest is truncated to
// 16 bytes and stamped as a version-5-shaped UUID, so the result looks
// like a real UUID and remains a pure function of its inputs.
func DeterministicItemUID(datasetUID, schemaUID UID, identifier string) UID {
	h := sha256.New()
	h.Write(datasetUID[:])
	h.Write(schemaUID[:])
	var idHash [8]byte
	binary.BigEndian.PutUint64(idHash[:], fnvHash(identifier))
	h.Write(idHash[:])
	sum := h.Sum(nil)
	var out UID
	copy(out[:], sum[:16])
	out[6] = (out[6] & 0x0f) | 0x50 // version 5
	out[8] = (out[8] & 0x3f) | 0x80 // RFC 4122 variant
	return out
}

// fnvHash is a small non-cryptographic string hash used only as one of
// the three inputs folded into DeterministicItemUID; it has no
// correctness requirement beyond being a pure function of its input.
func fnvHash(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	hash := uint64(offset64)
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}
