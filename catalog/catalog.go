// catalog/catalog.go
package catalog

import (
	"fmt"
	"sort"
	"sync"

	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	"github.com/arbiterhq/arbiter/model"
)

// operatorsByType maps each data type to the operators defined for it.
// Ordering comparisons are limited to numbers and dates; CONTAINS covers
// string substring and array membership.
var operatorsByType = map[model.DataType][]model.Operator{
	model.TypeString: {
		model.OpEquals, model.OpNotEquals, model.OpContains, model.OpNotContains,
		model.OpStartsWith, model.OpEndsWith, model.OpIn, model.OpNotIn,
		model.OpExists, model.OpNotExists,
	},
	model.TypeNumber: {
		model.OpEquals, model.OpNotEquals, model.OpGreaterThan, model.OpLessThan,
		model.OpGreaterThanOrEqual, model.OpLessThanOrEqual, model.OpIn, model.OpNotIn,
		model.OpExists, model.OpNotExists,
	},
	model.TypeBoolean: {
		model.OpEquals, model.OpNotEquals, model.OpExists, model.OpNotExists,
	},
	model.TypeDate: {
		model.OpEquals, model.OpNotEquals, model.OpGreaterThan, model.OpLessThan,
		model.OpGreaterThanOrEqual, model.OpLessThanOrEqual, model.OpExists, model.OpNotExists,
	},
	model.TypeArray: {
		model.OpEquals, model.OpNotEquals, model.OpContains, model.OpNotContains,
		model.OpExists, model.OpNotExists,
	},
	model.TypeObject: {
		model.OpEquals, model.OpNotEquals, model.OpExists, model.OpNotExists,
	},
}

// OperatorsForType returns the operators defined for a data type.
func OperatorsForType(dt model.DataType) []model.Operator {
	ops := operatorsByType[dt]
	out := make([]model.Operator, len(ops))
	copy(out, ops)
	return out
}

// Catalog is the registry of attribute definitions. System definitions are
// registered at construction; additional definitions may be registered once
// and are immutable afterwards.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]model.AttributeDefinition
}

// New creates a catalog pre-loaded with the system attribute definitions.
func New() *Catalog {
	c := &Catalog{defs: make(map[string]model.AttributeDefinition)}
	for _, def := range systemDefinitions() {
		c.defs[def.Path] = def
	}
	return c
}

// Register adds a new attribute definition. Registering an existing path
// fails: definitions are immutable once registered.
func (c *Catalog) Register(def model.AttributeDefinition) error {
	if def.Path == "" {
		return fmt.Errorf("attribute path cannot be empty")
	}
	if _, ok := operatorsByType[def.DataType]; !ok {
		return fmt.Errorf("unknown data type %q for attribute %q", def.DataType, def.Path)
	}
	if len(def.ValidOperators) == 0 {
		def.ValidOperators = OperatorsForType(def.DataType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.defs[def.Path]; exists {
		return fmt.Errorf("%w: %s", arbiter_errors.ErrAttributeExists, def.Path)
	}
	c.defs[def.Path] = def
	return nil
}

// Lookup returns the definition for a path.
func (c *Catalog) Lookup(path string) (model.AttributeDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[path]
	return def, ok
}

// List returns all definitions sorted by path.
func (c *Catalog) List() []model.AttributeDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.AttributeDefinition, 0, len(c.defs))
	for _, def := range c.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ListByCategory returns the definitions in one namespace, sorted by path.
func (c *Catalog) ListByCategory(category model.Category) []model.AttributeDefinition {
	all := c.List()
	out := all[:0]
	for _, def := range all {
		if def.Category == category {
			out = append(out, def)
		}
	}
	return out
}

// ValidateCondition checks a condition against the catalog: the attribute
// must be registered and the operator must be valid for its data type.
func (c *Catalog) ValidateCondition(cond model.AttributeCondition) error {
	def, ok := c.Lookup(cond.Attribute)
	if !ok {
		return fmt.Errorf("%w: %s", arbiter_errors.ErrAttributeNotRegistered, cond.Attribute)
	}
	for _, op := range def.ValidOperators {
		if op == cond.Operator {
			return nil
		}
	}
	return arbiter_errors.NewConfigurationError(cond.Attribute, string(cond.Operator),
		"operator not valid for %s attribute", def.DataType)
}

func systemDefinitions() []model.AttributeDefinition {
	def := func(path string, dt model.DataType, cat model.Category, required bool, desc string) model.AttributeDefinition {
		return model.AttributeDefinition{
			Path:           path,
			DataType:       dt,
			Category:       cat,
			ValidOperators: OperatorsForType(dt),
			IsRequired:     required,
			IsSystem:       true,
			Description:    desc,
		}
	}
	return []model.AttributeDefinition{
		def("subject.id", model.TypeString, model.CategorySubject, true, "requesting subject identifier"),
		def("subject.role.name", model.TypeString, model.CategorySubject, false, "primary role name"),
		def("subject.roles", model.TypeArray, model.CategorySubject, false, "all assigned role names"),
		def("subject.department.id", model.TypeString, model.CategorySubject, false, "owning department"),
		def("subject.location", model.TypeString, model.CategorySubject, false, "subject location"),
		def("subject.clearanceLevel", model.TypeString, model.CategorySubject, false, "clearance level"),
		def("subject.approvalLimit.amount", model.TypeNumber, model.CategorySubject, false, "approval limit amount"),
		def("subject.approvalLimit.currency", model.TypeString, model.CategorySubject, false, "approval limit currency"),
		def("subject.accountStatus", model.TypeString, model.CategorySubject, false, "active or suspended, derived from the activity flag"),
		def("subject.tenureYears", model.TypeNumber, model.CategorySubject, false, "whole years since the subject record was created"),
		def("subject.onDuty", model.TypeBoolean, model.CategorySubject, false, "on-duty flag"),

		def("resource.type", model.TypeString, model.CategoryResource, true, "resource type"),
		def("resource.id", model.TypeString, model.CategoryResource, false, "resource identifier"),
		def("resource.category", model.TypeString, model.CategoryResource, false, "resource category"),
		def("resource.classification", model.TypeString, model.CategoryResource, false, "data classification, defaults to internal"),
		def("resource.totalValue.amount", model.TypeNumber, model.CategoryResource, false, "monetary value of the resource"),
		def("resource.totalValue.currency", model.TypeString, model.CategoryResource, false, "currency of the resource value"),

		def("environment.timestamp", model.TypeDate, model.CategoryEnvironment, true, "evaluation timestamp"),
		def("environment.dayOfWeek", model.TypeString, model.CategoryEnvironment, false, "day of week"),
		def("environment.isBusinessHours", model.TypeBoolean, model.CategoryEnvironment, false, "local hour within business hours"),
		def("environment.isHoliday", model.TypeBoolean, model.CategoryEnvironment, false, "holiday flag"),
		def("environment.threatLevel", model.TypeString, model.CategoryEnvironment, false, "current threat level"),
		def("environment.ipAddress", model.TypeString, model.CategoryEnvironment, false, "caller IP address"),
		def("environment.userAgent", model.TypeString, model.CategoryEnvironment, false, "caller user agent"),
		def("environment.sessionId", model.TypeString, model.CategoryEnvironment, false, "caller session identifier"),
		def("environment.facility", model.TypeString, model.CategoryEnvironment, false, "facility the request originates from"),

		def("action.name", model.TypeString, model.CategoryAction, true, "requested action name"),
		def("action.type", model.TypeString, model.CategoryAction, false, "action classification"),
		def("action.riskLevel", model.TypeString, model.CategoryAction, false, "action risk level"),
		def("action.requiresApproval", model.TypeBoolean, model.CategoryAction, false, "whether the action requires approval"),
		def("action.auditRequired", model.TypeBoolean, model.CategoryAction, false, "whether the action must be audited"),
	}
}
