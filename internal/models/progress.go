package models

// ProgressUpdate is the payload broadcast to all websocket clients for
// background job status changes (backup, analytics warmup, imports).
// Transfer-job events use their own subscription-scoped payloads.
type ProgressUpdate struct {
	JobID    string  `json:"jobId"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	Status   string  `json:"status"` // e.g. "running", "success", "failed"
	Done     bool    `json:"done"`
}
