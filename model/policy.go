// model/policy.go
package model

import (
	"time"
)

// Effect is a policy's declared outcome.
type Effect string

const (
	EffectPermit Effect = "permit"
	EffectDeny   Effect = "deny"
)

// PolicyStatus is the lifecycle state of a policy. Policies start as drafts,
// are promoted to active, and may be parked inactive. Archival is terminal:
// an archived policy is never reactivated, a replacement is created instead.
type PolicyStatus string

const (
	StatusDraft    PolicyStatus = "draft"
	StatusActive   PolicyStatus = "active"
	StatusInactive PolicyStatus = "inactive"
	StatusArchived PolicyStatus = "archived"
)

// CombiningAlgorithm names the strategy for resolving conflicting effects.
type CombiningAlgorithm string

const (
	DenyOverrides     CombiningAlgorithm = "deny_overrides"
	PermitOverrides   CombiningAlgorithm = "permit_overrides"
	FirstApplicable   CombiningAlgorithm = "first_applicable"
	OnlyOneApplicable CombiningAlgorithm = "only_one_applicable"
)

// Operator is a condition comparison operator.
type Operator string

const (
	OpEquals             Operator = "EQUALS"
	OpNotEquals          Operator = "NOT_EQUALS"
	OpGreaterThan        Operator = "GREATER_THAN"
	OpLessThan           Operator = "LESS_THAN"
	OpGreaterThanOrEqual Operator = "GREATER_THAN_OR_EQUAL"
	OpLessThanOrEqual    Operator = "LESS_THAN_OR_EQUAL"
	OpContains           Operator = "CONTAINS"
	OpNotContains        Operator = "NOT_CONTAINS"
	OpStartsWith         Operator = "STARTS_WITH"
	OpEndsWith           Operator = "ENDS_WITH"
	OpIn                 Operator = "IN"
	OpNotIn              Operator = "NOT_IN"
	OpExists             Operator = "EXISTS"
	OpNotExists          Operator = "NOT_EXISTS"
)

// LogicalOperator joins nested conditions inside a composite condition.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
	LogicalNot LogicalOperator = "NOT"
)

// AttributeReference marks a condition value that names another attribute
// path instead of a literal, e.g. comparing resource.totalValue.amount
// against subject.approvalLimit.amount. Both sides are resolved from the same
// context snapshot.
type AttributeReference struct {
	Attribute string `json:"attribute"`
}

// AttributeCondition compares one resolved attribute against a literal value
// or another attribute (via AttributeReference / {"attribute": path} maps).
type AttributeCondition struct {
	Attribute string      `json:"attribute"`
	Operator  Operator    `json:"operator"`
	Value     interface{} `json:"value,omitempty"`
}

// ReferencePath extracts the referenced attribute path from a condition
// value, if the value is an attribute reference. JSON-decoded references
// arrive as {"attribute": "..."} maps.
func ReferencePath(value interface{}) (string, bool) {
	switch v := value.(type) {
	case AttributeReference:
		return v.Attribute, v.Attribute != ""
	case *AttributeReference:
		if v == nil {
			return "", false
		}
		return v.Attribute, v.Attribute != ""
	case map[string]interface{}:
		if len(v) != 1 {
			return "", false
		}
		path, ok := v["attribute"].(string)
		return path, ok && path != ""
	default:
		return "", false
	}
}

// Condition is a tagged variant: either a single attribute comparison or a
// logical composite over nested conditions. Exactly one of Simple or
// (Logical, Children) is set.
type Condition struct {
	Simple   *AttributeCondition `json:"condition,omitempty"`
	Logical  LogicalOperator     `json:"logical_operator,omitempty"`
	Children []Condition         `json:"conditions,omitempty"`
}

// IsComposite reports whether the condition is a logical composite.
func (c Condition) IsComposite() bool {
	return c.Simple == nil && c.Logical != ""
}

// SimpleCondition wraps an attribute comparison as a Condition.
func SimpleCondition(attribute string, op Operator, value interface{}) Condition {
	return Condition{Simple: &AttributeCondition{Attribute: attribute, Operator: op, Value: value}}
}

// CompositeCondition builds a logical condition over children.
func CompositeCondition(op LogicalOperator, children ...Condition) Condition {
	return Condition{Logical: op, Children: children}
}

// Rule is a named condition owned by exactly one policy. All of a policy's
// rules must hold for the policy's effect to apply.
type Rule struct {
	ID          string    `json:"id"`
	Description string    `json:"description,omitempty"`
	Condition   Condition `json:"condition"`
}

// Target scopes a policy to requests. Subject, resource and environment
// constraints are attribute conditions that must all hold; Actions is a plain
// membership list. An empty list means "no constraint", not "never matches".
type Target struct {
	Subjects    []AttributeCondition `json:"subjects,omitempty"`
	Resources   []AttributeCondition `json:"resources,omitempty"`
	Actions     []string             `json:"actions,omitempty"`
	Environment []AttributeCondition `json:"environment,omitempty"`
}

// Obligation is a mandatory side instruction attached to a decision. The
// engine treats obligations as opaque and simply forwards them to the caller.
type Obligation struct {
	Type       string                 `json:"type"`
	Action     string                 `json:"action"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Advice is a non-mandatory counterpart to Obligation.
type Advice struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Policy is the canonical in-memory policy representation. It is assembled
// once (by the builder wizard or an importer) and serialized only at the
// repository edge.
//
// The per-policy CombiningAlgorithm governs how this policy's own rules would
// be combined if rule-level effects are ever introduced; conflicts between
// policies are resolved by the store-wide configured algorithm.
type Policy struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name" validate:"required,max=255"`
	Description        string             `json:"description,omitempty"`
	Priority           int                `json:"priority" validate:"min=0,max=1000"`
	Effect             Effect             `json:"effect" validate:"required,oneof=permit deny"`
	Status             PolicyStatus       `json:"status" validate:"omitempty,oneof=draft active inactive archived"`
	CombiningAlgorithm CombiningAlgorithm `json:"combining_algorithm,omitempty" validate:"omitempty,oneof=deny_overrides permit_overrides first_applicable only_one_applicable"`
	Target             Target             `json:"target"`
	Rules              []Rule             `json:"rules"`
	Obligations        []Obligation       `json:"obligations,omitempty"`
	Advice             []Advice           `json:"advice,omitempty"`
	ValidFrom          *time.Time         `json:"valid_from,omitempty"`
	ValidTo            *time.Time         `json:"valid_to,omitempty"`
	Version            int                `json:"version"`
	Tags               []string           `json:"tags,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ConditionCount returns the number of target conditions plus rules, used by
// structural validation.
func (p *Policy) ConditionCount() int {
	return len(p.Target.Subjects) + len(p.Target.Resources) + len(p.Target.Actions) +
		len(p.Target.Environment) + len(p.Rules)
}

// CanTransitionTo reports whether the lifecycle transition to next is legal.
// Archived is terminal.
func (p *Policy) CanTransitionTo(next PolicyStatus) bool {
	if p.Status == next {
		return false
	}
	switch p.Status {
	case StatusDraft:
		return next == StatusActive || next == StatusArchived
	case StatusActive:
		return next == StatusInactive || next == StatusArchived
	case StatusInactive:
		return next == StatusActive || next == StatusArchived
	case StatusArchived:
		return false
	default:
		return false
	}
}

// PolicySearchCriteria drives repository-side policy search.
type PolicySearchCriteria struct {
	Name        string       `json:"name,omitempty"`
	Effect      Effect       `json:"effect,omitempty"`
	Status      PolicyStatus `json:"status,omitempty"`
	Tag         string       `json:"tag,omitempty"`
	MinPriority int          `json:"min_priority,omitempty"`
	MaxPriority int          `json:"max_priority,omitempty"`
	FromDate    *time.Time   `json:"from_date,omitempty"`
	ToDate      *time.Time   `json:"to_date,omitempty"`
	Limit       int          `json:"limit,omitempty"`
	Offset      int          `json:"offset,omitempty"`
}
