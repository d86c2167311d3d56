package export

import "hash/fnv"

// stableHash derives a stable fs.StableAttr.Ino from a path-like key so
// the same export entry keeps the same inode number across lookups,
// hashing identifiers rather than counting an in-memory sequence.
func stableHash(key string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return h.Sum64()
}
