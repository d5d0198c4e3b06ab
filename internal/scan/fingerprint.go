package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
)

// Fingerprint hashes the (path, size, mtime) triples of a project in path
// order. Traversal order does not affect the result. File contents are not
// read: two files with equal size and mtime but different bytes hash the same.
func Fingerprint(entries []FileEntry) string {
	h := sha256.New()
	for _, e := range sortedEntries(entries) {
		h.Write([]byte(e.Path))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(e.Size, 10)))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(e.ModTime, 10)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedEntries(entries []FileEntry) []FileEntry {
	out := make([]FileEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
