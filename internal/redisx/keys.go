package redisx

import "time"

const (
	// Session token: session:{token} -> user_id
	KeySession = "session:%s"

	// Cache of order status: order_status:{order_id} -> {"status":"...","cancel_reason":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLSession     = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
