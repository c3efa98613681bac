package dto

// ProcessQueueRequest identifies the user on whose behalf queued tasks are
// billed in telemetry.
type ProcessQueueRequest struct {
	UserID string `json:"user_id"`
}
