package dto

type StatusResponse struct {
	QueueLength   int               `json:"queue_length"`
	BacklogLength int               `json:"backlog_length"`
	ManifestSize  int               `json:"manifest_size"`
	ManifestUsed  int               `json:"manifest_used"`
	ManifestLimit int               `json:"manifest_limit"`
	FreeBins      int               `json:"free_bins"`
	TotalBins     int               `json:"total_bins"`
	Queue         []PackageResponse `json:"queue"`
	Backlog       []PackageResponse `json:"backlog"`
	// Bottom of the stack first.
	Manifest []PackageResponse `json:"manifest"`
}
