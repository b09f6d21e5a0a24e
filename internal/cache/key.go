// Package cache implements the on-disk, content-addressed session cache:
// a per-hash_root zip archive of session outputs, a lock-protected index
// that tracks every file the cache directory owns, and the in-memory
// decode memoization that keeps a multi-session build from re-reading the
// same archive once per session.
package cache

import (
	"encoding/hex"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// StdinCacheKey is the literal cache key used when the document came from
// stdin rather than named files, matching the display name `<string>`
// used elsewhere for inline/stdin provenance.
const StdinCacheKey = "<string>"

// Key computes the specification's cache_key: the first 16 hex characters
// of a BLAKE2b hash over the build's origin document paths, each
// tildified against the user's home directory so a cache built under one
// checkout of the same home directory still hits under another. A stdin
// build (no origin paths) always gets the constant StdinCacheKey.
func Key(originPaths []string, stdin bool) string {
	if stdin {
		return StdinCacheKey
	}
	home, _ := os.UserHomeDir()
	tildified := make([]string, len(originPaths))
	for i, p := range originPaths {
		tildified[i] = tildifyPath(p, home)
	}
	sum := blake2b.Sum512([]byte(strings.Join(tildified, "\n")))
	return hex.EncodeToString(sum[:])[:16]
}

func tildifyPath(path, home string) string {
	if home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(os.PathSeparator)) {
		return "~" + path[len(home):]
	}
	return path
}
