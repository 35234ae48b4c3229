package heartbeat

import "github.com/oklog/ulid/v2"

// NewRunID generates a ULID string naming one engine run in logs and status.
func NewRunID() string {
	return ulid.Make().String()
}
