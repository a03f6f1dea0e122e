package model

import (
	"github.com/arbiterhq/arbiter/model"
)

// DecisionEffect is the terminal outcome of one evaluation. Unlike a policy
// effect it includes not_applicable, which callers must treat as deny.
type DecisionEffect string

const (
	DecisionPermit        DecisionEffect = "permit"
	DecisionDeny          DecisionEffect = "deny"
	DecisionNotApplicable DecisionEffect = "not_applicable"
)

// Decision is the immutable outcome of evaluating one request. Raw internal
// errors never surface here; a broken policy degrades to not applicable.
type Decision struct {
	Effect           DecisionEffect     `json:"effect"`
	MatchedPolicyIDs []string           `json:"matched_policy_ids,omitempty"`
	Obligations      []model.Obligation `json:"obligations,omitempty"`
	Advice           []model.Advice     `json:"advice,omitempty"`
	ConflictDetected bool               `json:"conflict_detected,omitempty"`
	Reason           string             `json:"reason,omitempty"`
	EvaluationTimeMs int64              `json:"evaluation_time_ms"`
}

// PolicyEvaluationResult captures one policy's local outcome during
// combination. A policy is applicable only when its target matched and every
// rule held; Err records the configuration error that voided it, if any.
type PolicyEvaluationResult struct {
	PolicyID    string
	PolicyName  string
	Effect      model.Effect
	Priority    int
	Applicable  bool
	Reason      string
	Err         error
	Obligations []model.Obligation
	Advice      []model.Advice
}
