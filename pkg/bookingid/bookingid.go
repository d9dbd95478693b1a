package bookingid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Prefix is carried over from the legacy booking-id scheme so downstream
// history views keep working against old rows.
const Prefix = "BK"

// New generates a booking identity: the BK prefix, the current millisecond
// timestamp, and a random 48-bit uuid-derived suffix. The timestamp keeps IDs
// roughly sortable for operators; the suffix keeps two requests in the same
// millisecond apart even in bursts of tens of thousands. A fresh identity is
// generated per attempt and never reused across retries.
func New() string {
	u := uuid.New()
	return fmt.Sprintf("%s%d-%x", Prefix, time.Now().UnixMilli(), u[:6])
}
