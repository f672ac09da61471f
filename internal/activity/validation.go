package activity

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// maxClockSkew bounds how far in the future an event timestamp may be.
const maxClockSkew = 5 * time.Minute

// ValidatePayload checks that a stream payload can be persisted.
func ValidatePayload(payload EventPayload, now time.Time) error {
	if !payload.Type.IsValid() {
		return fmt.Errorf("unknown event type %q", payload.Type)
	}
	if payload.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if _, err := ulid.ParseStrict(payload.UserID); err != nil {
		return fmt.Errorf("user_id must be a ULID")
	}
	if payload.CourseID == "" {
		return fmt.Errorf("course_id is required")
	}
	if _, err := ulid.ParseStrict(payload.CourseID); err != nil {
		return fmt.Errorf("course_id must be a ULID")
	}
	if payload.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	if time.UnixMilli(payload.OccurredAt).After(now.Add(maxClockSkew)) {
		return fmt.Errorf("occurred_at is in the future")
	}
	return nil
}
