package model

// Dimension names one axis of the aggregate counts.
type Dimension string

const (
	DimensionStatus   Dimension = "status"
	DimensionCategory Dimension = "category"
	DimensionManager  Dimension = "manager"
)

// Aggregate is a count of tasks sharing one dimension value under the
// current filter projection.
type Aggregate struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
	Count int    `json:"count"`
}
