package dto

type BinResponse struct {
	BinID        int    `json:"bin_id"`
	LocationCode string `json:"location_code"`
	Capacity     int    `json:"capacity"`
	Occupant     string `json:"occupant,omitempty"`
	OccupantSize int    `json:"occupant_size,omitempty"`
}

type ListBinsResponse struct {
	Bins []BinResponse `json:"bins"`
}

type BinSpecRequest struct {
	LocationCode string `json:"location_code"`
	Capacity     int    `json:"capacity"`
}

type ResetBinsRequest struct {
	Bins []BinSpecRequest `json:"bins"`
}

type ResetBinsResponse struct {
	Bins int `json:"bins"`
}
