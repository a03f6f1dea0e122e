// builder/builder.go
package builder

import (
	"fmt"
	"time"

	"github.com/arbiterhq/arbiter/model"
)

// Stage is one step of the policy-builder wizard. Stages are strictly
// linear: Subject → Resource → Actions → Environment → Review.
type Stage string

const (
	StageSubject     Stage = "subject"
	StageResource    Stage = "resource"
	StageActions     Stage = "actions"
	StageEnvironment Stage = "environment"
	StageReview      Stage = "review"
)

var stageOrder = []Stage{StageSubject, StageResource, StageActions, StageEnvironment, StageReview}

// selectableActions gates which actions stage three offers, keyed by the
// resource type chosen in stage two.
var selectableActions = map[string][]string{
	"department":     {"read", "create", "update", "delete"},
	"vendor":         {"read", "create", "update", "delete", "approve_vendor"},
	"product":        {"read", "create", "update", "delete", "import", "export"},
	"grn":            {"read", "create", "update", "submit", "approve_grn"},
	"purchase_order": {"read", "create", "update", "submit", "approve_department", "export"},
}

var defaultSelectableActions = []string{"read", "create", "update", "delete"}

// State is the wizard's accumulating draft. Each stage writes a disjoint
// subset; only the resource type chosen in stage two leaks forward, gating
// stage three's selectable actions.
type State struct {
	Stage Stage `json:"stage"`

	// Draft metadata, set at construction.
	Name               string                   `json:"name"`
	Description        string                   `json:"description,omitempty"`
	Effect             model.Effect             `json:"effect"`
	Priority           int                      `json:"priority"`
	CombiningAlgorithm model.CombiningAlgorithm `json:"combining_algorithm,omitempty"`

	// Stage 1: subject constraints.
	SubjectConditions []model.AttributeCondition `json:"subject_conditions,omitempty"`

	// Stage 2: resource type plus constraints.
	ResourceType       string                     `json:"resource_type,omitempty"`
	ResourceConditions []model.AttributeCondition `json:"resource_conditions,omitempty"`

	// Stage 3: selected actions.
	Actions []string `json:"actions,omitempty"`

	// Stage 4: environment constraints.
	EnvironmentConditions []model.AttributeCondition `json:"environment_conditions,omitempty"`

	// Stage 5: rules and trailing metadata, assembled at review.
	Rules       []model.Rule       `json:"rules,omitempty"`
	Obligations []model.Obligation `json:"obligations,omitempty"`
	Advice      []model.Advice     `json:"advice,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	ValidFrom   *time.Time         `json:"valid_from,omitempty"`
	ValidTo     *time.Time         `json:"valid_to,omitempty"`
}

// Wizard walks a policy draft through the five builder stages.
type Wizard struct {
	state State
}

func NewWizard(name, description string, effect model.Effect, priority int) *Wizard {
	return &Wizard{state: State{
		Stage:       StageSubject,
		Name:        name,
		Description: description,
		Effect:      effect,
		Priority:    priority,
	}}
}

// State returns a copy of the current draft.
func (w *Wizard) State() State { return w.state }

// Advance moves to the next stage. Leaving the resource stage requires a
// chosen resource type because it gates the action stage.
func (w *Wizard) Advance() error {
	idx := stageIndex(w.state.Stage)
	if idx == len(stageOrder)-1 {
		return fmt.Errorf("wizard already at review stage")
	}
	if w.state.Stage == StageResource && w.state.ResourceType == "" {
		return fmt.Errorf("select a resource type before choosing actions")
	}
	w.state.Stage = stageOrder[idx+1]
	return nil
}

// Back moves to the previous stage; draft data entered so far is kept.
func (w *Wizard) Back() error {
	idx := stageIndex(w.state.Stage)
	if idx == 0 {
		return fmt.Errorf("wizard already at subject stage")
	}
	w.state.Stage = stageOrder[idx-1]
	return nil
}

// SetSubjectConditions writes stage one.
func (w *Wizard) SetSubjectConditions(conds []model.AttributeCondition) error {
	if err := w.requireStage(StageSubject); err != nil {
		return err
	}
	w.state.SubjectConditions = conds
	return nil
}

// SetResource writes stage two.
func (w *Wizard) SetResource(resourceType string, conds []model.AttributeCondition) error {
	if err := w.requireStage(StageResource); err != nil {
		return err
	}
	if resourceType == "" {
		return fmt.Errorf("resource type cannot be empty")
	}
	w.state.ResourceType = resourceType
	w.state.ResourceConditions = conds
	return nil
}

// SelectableActions lists the actions stage three may offer for a resource
// type.
func SelectableActions(resourceType string) []string {
	if actions, ok := selectableActions[resourceType]; ok {
		out := make([]string, len(actions))
		copy(out, actions)
		return out
	}
	out := make([]string, len(defaultSelectableActions))
	copy(out, defaultSelectableActions)
	return out
}

// SetActions writes stage three. Every action must be selectable for the
// resource type chosen in stage two.
func (w *Wizard) SetActions(actions []string) error {
	if err := w.requireStage(StageActions); err != nil {
		return err
	}
	allowed := make(map[string]bool)
	for _, a := range SelectableActions(w.state.ResourceType) {
		allowed[a] = true
	}
	for _, a := range actions {
		if !allowed[a] {
			return fmt.Errorf("action %q is not selectable for resource type %q", a, w.state.ResourceType)
		}
	}
	w.state.Actions = actions
	return nil
}

// SetEnvironmentConditions writes stage four.
func (w *Wizard) SetEnvironmentConditions(conds []model.AttributeCondition) error {
	if err := w.requireStage(StageEnvironment); err != nil {
		return err
	}
	w.state.EnvironmentConditions = conds
	return nil
}

// SetReview writes stage five: the rules plus trailing metadata.
func (w *Wizard) SetReview(rules []model.Rule, obligations []model.Obligation, advice []model.Advice, tags []string, validFrom, validTo *time.Time) error {
	if err := w.requireStage(StageReview); err != nil {
		return err
	}
	w.state.Rules = rules
	w.state.Obligations = obligations
	w.state.Advice = advice
	w.state.Tags = tags
	w.state.ValidFrom = validFrom
	w.state.ValidTo = validTo
	return nil
}

// Finish converts the draft into a Policy after validating it. A draft only
// becomes a policy when comprehensive validation passes with zero errors.
func (w *Wizard) Finish(v *Validator) (model.Policy, Result, error) {
	if w.state.Stage != StageReview {
		return model.Policy{}, Result{}, fmt.Errorf("wizard must reach the review stage before finishing")
	}
	policy := ConvertStateToPolicy(w.state)
	result := v.Validate(policy, LevelComprehensive)
	if !result.IsValid {
		return model.Policy{}, result, fmt.Errorf("draft failed validation with %d error(s)", len(result.Errors))
	}
	return policy, result, nil
}

// ConvertStateToPolicy maps the wizard state onto the canonical policy
// struct. The mapping is loss-free: serializing the policy and re-parsing it
// reproduces the same target and rule structure the validator saw.
func ConvertStateToPolicy(s State) model.Policy {
	return model.Policy{
		Name:               s.Name,
		Description:        s.Description,
		Effect:             s.Effect,
		Priority:           s.Priority,
		Status:             model.StatusDraft,
		CombiningAlgorithm: s.CombiningAlgorithm,
		Target: model.Target{
			Subjects: s.SubjectConditions,
			Resources: append([]model.AttributeCondition{
				{Attribute: "resource.type", Operator: model.OpEquals, Value: s.ResourceType},
			}, s.ResourceConditions...),
			Actions:     s.Actions,
			Environment: s.EnvironmentConditions,
		},
		Rules:       s.Rules,
		Obligations: s.Obligations,
		Advice:      s.Advice,
		Tags:        s.Tags,
		ValidFrom:   s.ValidFrom,
		ValidTo:     s.ValidTo,
		Version:     1,
	}
}

func (w *Wizard) requireStage(stage Stage) error {
	if w.state.Stage != stage {
		return fmt.Errorf("operation belongs to the %s stage, wizard is at %s", stage, w.state.Stage)
	}
	return nil
}

func stageIndex(s Stage) int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return 0
}
