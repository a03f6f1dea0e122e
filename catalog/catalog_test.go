// catalog/catalog_test.go
package catalog_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/catalog"
	arbiter_errors "github.com/arbiterhq/arbiter/errors"
	"github.com/arbiterhq/arbiter/model"
)

func TestNew_SystemDefinitions(t *testing.T) {
	c := catalog.New()

	for _, path := range []string{
		"subject.id",
		"subject.role.name",
		"subject.approvalLimit.amount",
		"resource.type",
		"resource.classification",
		"environment.timestamp",
		"environment.isBusinessHours",
		"action.name",
		"action.riskLevel",
	} {
		def, ok := c.Lookup(path)
		require.True(t, ok, "system attribute %s must be registered", path)
		assert.True(t, def.IsSystem)
		assert.NotEmpty(t, def.ValidOperators)
	}

	def, _ := c.Lookup("subject.approvalLimit.amount")
	assert.Equal(t, model.TypeNumber, def.DataType)
	assert.Contains(t, def.ValidOperators, model.OpGreaterThanOrEqual)
	assert.NotContains(t, def.ValidOperators, model.OpStartsWith)
}

func TestRegister(t *testing.T) {
	c := catalog.New()

	err := c.Register(model.AttributeDefinition{
		Path:     "subject.certifications",
		DataType: model.TypeArray,
		Category: model.CategorySubject,
	})
	require.NoError(t, err)

	def, ok := c.Lookup("subject.certifications")
	require.True(t, ok)
	assert.False(t, def.IsSystem)
	// Operators default from the data type when unspecified.
	assert.Equal(t, catalog.OperatorsForType(model.TypeArray), def.ValidOperators)

	t.Run("duplicate path rejected", func(t *testing.T) {
		err := c.Register(model.AttributeDefinition{
			Path:     "subject.certifications",
			DataType: model.TypeArray,
			Category: model.CategorySubject,
		})
		assert.ErrorIs(t, err, arbiter_errors.ErrAttributeExists)
	})

	t.Run("system path cannot be shadowed", func(t *testing.T) {
		err := c.Register(model.AttributeDefinition{
			Path:     "subject.id",
			DataType: model.TypeString,
			Category: model.CategorySubject,
		})
		assert.ErrorIs(t, err, arbiter_errors.ErrAttributeExists)
	})

	t.Run("empty path rejected", func(t *testing.T) {
		err := c.Register(model.AttributeDefinition{DataType: model.TypeString})
		assert.Error(t, err)
	})

	t.Run("unknown data type rejected", func(t *testing.T) {
		err := c.Register(model.AttributeDefinition{Path: "subject.x", DataType: model.DataType("blob")})
		assert.Error(t, err)
	})
}

func TestList_SortedByPath(t *testing.T) {
	c := catalog.New()
	require.NoError(t, c.Register(model.AttributeDefinition{
		Path: "aaa.first", DataType: model.TypeString, Category: model.CategorySubject,
	}))

	all := c.List()
	require.NotEmpty(t, all)
	assert.True(t, sort.SliceIsSorted(all, func(i, j int) bool { return all[i].Path < all[j].Path }))
	assert.Equal(t, "aaa.first", all[0].Path)
}

func TestListByCategory(t *testing.T) {
	c := catalog.New()

	actions := c.ListByCategory(model.CategoryAction)
	require.NotEmpty(t, actions)
	for _, def := range actions {
		assert.Equal(t, model.CategoryAction, def.Category)
	}

	assert.Empty(t, c.ListByCategory(model.Category("unknown")))
}

func TestValidateCondition(t *testing.T) {
	c := catalog.New()

	t.Run("valid", func(t *testing.T) {
		err := c.ValidateCondition(model.AttributeCondition{
			Attribute: "subject.approvalLimit.amount",
			Operator:  model.OpGreaterThanOrEqual,
			Value:     1000,
		})
		assert.NoError(t, err)
	})

	t.Run("unregistered attribute", func(t *testing.T) {
		err := c.ValidateCondition(model.AttributeCondition{
			Attribute: "subject.shoeSize",
			Operator:  model.OpEquals,
			Value:     42,
		})
		assert.ErrorIs(t, err, arbiter_errors.ErrAttributeNotRegistered)
	})

	t.Run("operator incompatible with data type", func(t *testing.T) {
		err := c.ValidateCondition(model.AttributeCondition{
			Attribute: "subject.onDuty",
			Operator:  model.OpGreaterThan,
			Value:     true,
		})
		require.Error(t, err)
		assert.True(t, arbiter_errors.IsConfigurationError(err))
	})
}

func TestOperatorsForType(t *testing.T) {
	ops := catalog.OperatorsForType(model.TypeBoolean)
	assert.ElementsMatch(t, []model.Operator{
		model.OpEquals, model.OpNotEquals, model.OpExists, model.OpNotExists,
	}, ops)

	// The returned slice is a copy; mutating it must not affect the catalog.
	ops[0] = model.Operator("MUTATED")
	again := catalog.OperatorsForType(model.TypeBoolean)
	assert.Equal(t, model.OpEquals, again[0])

	assert.Empty(t, catalog.OperatorsForType(model.DataType("blob")))
}
