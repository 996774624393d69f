package domain

import "time"

// DatasetSnapshot matches the API response shape for datasets.
type DatasetSnapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	UploadedBy  string `json:"uploadedBy"`
	UploadedAt  string `json:"uploadedAt"`
	TicketCount int    `json:"ticketCount"`
}

// OverrideSnapshot matches the API response shape for SLA overrides.
// Breached is nil when the override was cleared.
type OverrideSnapshot struct {
	TicketID  string `json:"ticketId"`
	Breached  *bool  `json:"breached"`
	UpdatedBy string `json:"updatedBy"`
	UpdatedAt string `json:"updatedAt"`
}

// NewDatasetSnapshot builds a dataset snapshot from a domain dataset.
func NewDatasetSnapshot(ds *Dataset) DatasetSnapshot {
	return DatasetSnapshot{
		ID:          ds.ID.String(),
		Name:        ds.Name,
		UploadedBy:  ds.UploadedBy,
		UploadedAt:  ds.UploadedAt.UTC().Format(time.RFC3339),
		TicketCount: ds.TicketCount,
	}
}

// NewOverrideSnapshot builds an override snapshot from a domain override.
func NewOverrideSnapshot(o *SLAOverride) OverrideSnapshot {
	breached := o.Breached
	return OverrideSnapshot{
		TicketID:  o.TicketID,
		Breached:  &breached,
		UpdatedBy: o.UpdatedBy,
		UpdatedAt: o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ToOverrides collapses persisted overrides into the lookup table the engine reads.
func ToOverrides(list []*SLAOverride) SLAOverrides {
	out := make(SLAOverrides, len(list))
	for _, o := range list {
		out[o.TicketID] = o.Breached
	}
	return out
}
