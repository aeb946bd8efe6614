// Package keys derives stable, collision-resistant cache keys from
// (namespace, text) pairs. Keys never contain the raw text: the text is
// reduced to a SHA-256 digest so keys stay short, filesystem- and Redis-safe,
// and free of sensitive content in backend key listings.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Separator joins the namespace and the content digest inside a cache key.
const Separator = ":"

// digestLen is the length of a hex-encoded SHA-256 digest.
const digestLen = sha256.Size * 2

// Encoder derives cache keys for one namespace. The namespace is typically the
// embedding model identifier; two different models must never share one, or
// their vectors will alias. An empty namespace is valid and means no isolation.
type Encoder struct {
	Namespace string
}

// Encode returns the cache key for text: namespace + ":" + hex(sha256(text)).
// Identical (namespace, text) pairs always produce the same key, on any
// platform and across restarts.
func (e Encoder) Encode(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.Namespace + Separator + hex.EncodeToString(sum[:])
}

// Prefix returns the key prefix shared by every key in this namespace, for use
// with store enumeration.
func (e Encoder) Prefix() string {
	return e.Namespace + Separator
}

// SplitKey splits a cache key into its namespace and hex digest. ok is false
// when the key does not have the encoder's shape. The digest has fixed length,
// so namespaces containing the separator split unambiguously.
func SplitKey(key string) (namespace, digest string, ok bool) {
	if len(key) < digestLen+len(Separator) {
		return "", "", false
	}
	cut := len(key) - digestLen
	namespace, digest = key[:cut-len(Separator)], key[cut:]
	if key[cut-len(Separator):cut] != Separator {
		return "", "", false
	}
	if !isHex(digest) {
		return "", "", false
	}
	return namespace, digest, true
}

// InNamespace reports whether key belongs to the given namespace.
func InNamespace(key, namespace string) bool {
	ns, _, ok := SplitKey(key)
	return ok && ns == namespace
}

func isHex(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f')
	}) < 0
}
