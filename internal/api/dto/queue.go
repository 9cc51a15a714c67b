package dto

type ProcessStepResponse struct {
	Outcome      string `json:"outcome"`
	TrackingID   string `json:"tracking_id,omitempty"`
	BinID        int    `json:"bin_id,omitempty"`
	LocationCode string `json:"location_code,omitempty"`
}

type ProcessQueueResponse struct {
	Steps         []ProcessStepResponse `json:"steps"`
	QueueLength   int                   `json:"queue_length"`
	BacklogLength int                   `json:"backlog_length"`
}

type RequeueResponse struct {
	Requeued    int `json:"requeued"`
	QueueLength int `json:"queue_length"`
}
