package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashKey generates MD5 hash of a key.
func HashKey(key string) string {
	hasher := md5.New()
	hasher.Write([]byte(key))
	return hex.EncodeToString(hasher.Sum(nil))
}

// BuildPattern returns a SCAN pattern matching every key under namespace
// that starts with prefix. Glob metacharacters in prefix match literally.
func BuildPattern(namespace, prefix string) string {
	return fmt.Sprintf("%s:%s*", namespace, EscapePattern(prefix))
}

// EscapePattern escapes the Redis glob metacharacters *?[]\ in s.
func EscapePattern(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
