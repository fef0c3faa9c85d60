package domain

// Bucket is a count/sum pair for an aggregate group.
type Bucket struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
}

// ProjectRollup groups projects sharing a status.
type ProjectRollup struct {
	Count        int64   `json:"count"`
	TotalFunding float64 `json:"totalFunding"`
}
