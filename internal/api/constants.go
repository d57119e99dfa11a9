package api

// API limits and constants.
const (
	// MaxScanBodySize caps the scan request: a base64 photo plus JSON framing.
	MaxScanBodySize = 16 << 20

	// MaxChatBodySize caps the chat request body.
	MaxChatBodySize = 16 << 10
)

// Cache-Control header values.
const (
	CacheNoStore = "no-store"
	// Catalog responses may be reused for the cache TTL by the browser.
	CachePrivateFiveMinutes = "private, max-age=300"
)
