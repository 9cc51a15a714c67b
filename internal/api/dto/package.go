package dto

type IngestPackageRequest struct {
	Size        int    `json:"size"`
	Destination string `json:"destination"`
	IsFragile   bool   `json:"is_fragile"`
}

type PackageResponse struct {
	TrackingID  string `json:"tracking_id"`
	Size        int    `json:"size"`
	Destination string `json:"destination"`
	IsFragile   bool   `json:"is_fragile"`
	Status      string `json:"status"`
	BinID       int    `json:"bin_id,omitempty"`
}

type ListPackagesResponse struct {
	Packages []PackageResponse `json:"packages"`
}
