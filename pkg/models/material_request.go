package models

import "time"

// SnapshotFieldTotalValue is the snapshot key carrying a material request's
// computed total, the field governance conditions usually compare against.
const SnapshotFieldTotalValue = "total_value"

// MaterialRequestStatus is the workflow-facing status of a material request.
// It is owned by the entity layer, not the engine: callers set it based on
// whether evaluation created instances and on how those instances resolve.
type MaterialRequestStatus string

const (
	MaterialRequestStatusDraft           MaterialRequestStatus = "draft"
	MaterialRequestStatusPendingApproval MaterialRequestStatus = "pending_approval"
	MaterialRequestStatusApproved        MaterialRequestStatus = "approved"
	MaterialRequestStatusRejected        MaterialRequestStatus = "rejected"
)

// MaterialRequestItem is one line of a material purchase request.
type MaterialRequestItem struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity"    validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price"  validate:"gte=0"`
}

// MaterialRequest is the reference governed entity: a purchase request whose
// total value may put it under an approval chain.
type MaterialRequest struct {
	ID          string                `json:"id"`
	ProjectID   string                `json:"project_id"`
	RequestedBy string                `json:"requested_by" validate:"required"`
	Status      MaterialRequestStatus `json:"status"`
	Items       []MaterialRequestItem `json:"items"        validate:"required,min=1,dive"`
	CreatedAt   time.Time             `json:"created_at"`
}

// TotalValue sums quantity times unit price over all items.
func (m *MaterialRequest) TotalValue() float64 {
	var total float64
	for _, item := range m.Items {
		total += item.Quantity * item.UnitPrice
	}

	return total
}

// Snapshot flattens the request into the field map conditions evaluate
// against.
func (m *MaterialRequest) Snapshot() EntitySnapshot {
	return EntitySnapshot{
		"id":                    m.ID,
		"project_id":            m.ProjectID,
		"requested_by":          m.RequestedBy,
		"item_count":            len(m.Items),
		SnapshotFieldTotalValue: m.TotalValue(),
	}
}
