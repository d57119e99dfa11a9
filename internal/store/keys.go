package store

import (
	"fmt"
	"sync"
	"time"
)

const chatPrefix = "chat:"

// keyPool provides reusable byte slices for building database keys.
var keyPool = sync.Pool{
	New: func() any {
		// "chat:" + user id + ":" + 20-digit timestamp + ":" + message id
		return make([]byte, 0, 128)
	},
}

// buildKey joins parts with ':' after prefix using a pooled buffer.
// Callers MUST call releaseKey when done with the key.
func buildKey(prefix string, parts ...string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, p...)
	}
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// chatUserPrefix is the prefix of every message key of userID.
func chatUserPrefix(userID string) string {
	return chatPrefix + userID + ":"
}

// sortableTime renders t as fixed-width nanoseconds so keys sort by time.
func sortableTime(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}
