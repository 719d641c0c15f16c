package msg

import (
	"fmt"
	"time"
)

// Message is one queued condition. ErrorCode mirrors libburn's opaque
// 24-bit error codes (§4.6): implementers don't need to decode it, but
// tests can select on Severity or substring-match Text.
type Message struct {
	ErrorCode   uint32
	Severity    Severity
	Priority    int
	OSErrno     int
	Text        string
	DriveIndex  int // global_index of the drive the message pertains to, -1 if none
	GeneratedAt time.Time
}

// Error lets Message satisfy the error interface, so propagation code
// in §7 can wrap it directly (errors.As target) while still returning
// a plain Go error to callers.
func (m *Message) Error() string {
	if m.DriveIndex >= 0 {
		return fmt.Sprintf("libburn: [%s] drive %d: %s", m.Severity, m.DriveIndex, m.Text)
	}
	return fmt.Sprintf("libburn: [%s] %s", m.Severity, m.Text)
}
