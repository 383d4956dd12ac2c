package audit

import (
	"context"
	"time"
)

// Result classifies how an access attempt ended.
type Result string

const (
	ResultGranted Result = "granted"
	ResultDenied  Result = "denied"
	ResultError   Result = "error"
)

// Record is one immutable audit log entry. The boundary masks denial reasons
// from callers; the record keeps the precise internal reason for operator
// forensics.
type Record struct {
	ID              string    `json:"id"`
	OccurredAt      time.Time `json:"occurred_at"`
	ActorUserID     string    `json:"actor_user_id,omitempty"` // empty when auth failed before identity was known
	Action          string    `json:"action"`
	ResourceType    string    `json:"resource_type"`
	ResourceID      string    `json:"resource_id,omitempty"`
	Result          Result    `json:"result"`
	Reason          string    `json:"reason,omitempty"`
	PermissionsUsed []string  `json:"permissions_used,omitempty"`
	IP              string    `json:"ip,omitempty"`
	Path            string    `json:"path,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
}

// Store appends immutable entries.
type Store interface {
	Append(ctx context.Context, rec *Record) error
}
