package dto

type OptimizeRequest struct {
	Capacity int `json:"capacity"`
}

type LoadedPackageResponse struct {
	TrackingID   string `json:"tracking_id"`
	Size         int    `json:"size"`
	IsFragile    bool   `json:"is_fragile"`
	BinID        int    `json:"bin_id"`
	LocationCode string `json:"location_code"`
}

type OptimizeResponse struct {
	TruckCapacity     int                     `json:"truck_capacity"`
	FilledSize        int                     `json:"filled_size"`
	OptimizedPackages []LoadedPackageResponse `json:"optimized_packages"`
	SpaceUtilization  float64                 `json:"space_utilization"`
	FragileIncluded   bool                    `json:"fragile_included"`
	NodesVisited      int                     `json:"nodes_visited"`
	ExecutionLogs     []string                `json:"execution_logs"`
}

type TrackingIDRequest struct {
	TrackingID string `json:"tracking_id"`
}

type ReturnedPackageResponse struct {
	TrackingID   string `json:"tracking_id"`
	BinID        int    `json:"bin_id"`
	LocationCode string `json:"location_code"`
}

type UnloadResponse struct {
	Shipped  PackageResponse           `json:"shipped"`
	Returned []ReturnedPackageResponse `json:"returned"`
	Orphaned []string                  `json:"orphaned"`
	Errors   []string                  `json:"errors"`
}

type DispatchResponse struct {
	Shipped []string `json:"shipped"`
}
