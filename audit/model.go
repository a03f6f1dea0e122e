// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

// DecisionLog records one access decision as handed back to the caller.
type DecisionLog struct {
	Timestamp        time.Time `json:"timestamp"`
	SubjectID        string    `json:"subject_id"`
	ResourceType     string    `json:"resource_type"`
	ResourceID       string    `json:"resource_id,omitempty"`
	ActionType       string    `json:"action_type"`
	Effect           string    `json:"effect"`
	MatchedPolicyIDs []string  `json:"matched_policy_ids,omitempty"`
	ConflictDetected bool      `json:"conflict_detected,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	EvaluationTimeMs int64     `json:"evaluation_time_ms"`
	CacheHit         bool      `json:"cache_hit"`
}

// PolicyChangeLog records one administrative change to the policy store.
type PolicyChangeLog struct {
	Timestamp     time.Time       `json:"timestamp"`
	UserID        string          `json:"user_id"`
	Action        string          `json:"action"`
	PolicyID      string          `json:"policy_id"`
	PolicyName    string          `json:"policy_name,omitempty"`
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}
