// model/resource.go
package model

import "time"

// DefaultClassification is assumed for resource types whose definition does
// not specify a data classification.
const DefaultClassification = "internal"

// ResourceDefinition describes a resource type known to the platform, e.g.
// "purchase_order", "grn", "vendor". The resolver consults it for category
// and classification defaults; per-request resource attributes ride in on the
// evaluation request itself.
type ResourceDefinition struct {
	Type           string                 `json:"type"`
	Name           string                 `json:"name,omitempty"`
	Category       string                 `json:"category,omitempty"`
	Classification string                 `json:"classification,omitempty"`
	Attributes     map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt      time.Time              `json:"created_at,omitempty"`
	UpdatedAt      time.Time              `json:"updated_at,omitempty"`
}

// EffectiveClassification returns the declared classification, defaulting to
// internal when unset.
func (d *ResourceDefinition) EffectiveClassification() string {
	if d == nil || d.Classification == "" {
		return DefaultClassification
	}
	return d.Classification
}
