package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// EvaluationRequest is the transient input to one authorization check. It
// maps 1:1 onto the evaluate API payload.
type EvaluationRequest struct {
	SubjectID          string                 `json:"subject_id"`
	ResourceType       string                 `json:"resource_type"`
	ResourceID         string                 `json:"resource_id,omitempty"`
	ActionType         string                 `json:"action_type"`
	ResourceAttributes map[string]interface{} `json:"resource_attributes,omitempty"`
	EnvironmentContext map[string]interface{} `json:"environment_context,omitempty"`
	Timestamp          time.Time              `json:"timestamp,omitempty"`
}

// CacheKey derives a deterministic digest for the request, used to key the
// decision cache. Environment map keys are sorted so equal requests always
// hash identically.
func (r *EvaluationRequest) CacheKey() string {
	h := sha256.New()
	h.Write([]byte(r.SubjectID))
	h.Write([]byte{0})
	h.Write([]byte(r.ResourceType))
	h.Write([]byte{0})
	h.Write([]byte(r.ResourceID))
	h.Write([]byte{0})
	h.Write([]byte(r.ActionType))
	writeSortedMap(h, r.ResourceAttributes)
	writeSortedMap(h, r.EnvironmentContext)
	return hex.EncodeToString(h.Sum(nil))
}

func writeSortedMap(h interface{ Write([]byte) (int, error) }, m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		b, _ := json.Marshal(m[k])
		h.Write(b)
	}
}
