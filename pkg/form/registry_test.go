package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() Registry {
	return Registry{
		{FieldID: "name", Label: "Full name", Type: FieldTypeText, Required: true},
		{FieldID: "age", Label: "Age", Type: FieldTypeText, Required: true},
		{FieldID: "color", Label: "Favorite color", Type: FieldTypeSelect, Options: []string{"red", "blue"}},
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := testRegistry()

	f, ok := reg.Lookup("age")
	require.True(t, ok)
	assert.Equal(t, "Age", f.Label)

	_, ok = reg.Lookup("unknown")
	assert.False(t, ok)
}

func TestRegistryCloneIsDeep(t *testing.T) {
	reg := testRegistry()
	clone := reg.Clone()

	clone[0].Value = "mutated"
	clone[2].Options[0] = "green"

	assert.Empty(t, reg[0].Value)
	assert.Equal(t, "red", reg[2].Options[0])
}

func TestRegistryApplyValues(t *testing.T) {
	reg := testRegistry()
	reg.ApplyValues([]FilledField{
		{FieldID: "name", Value: "Ada"},
		{FieldID: "unknown", Value: "dropped"},
	})

	name, _ := reg.Lookup("name")
	assert.Equal(t, "Ada", name.Value)
	age, _ := reg.Lookup("age")
	assert.Empty(t, age.Value)
}

func TestPartitionMerge(t *testing.T) {
	reg := testRegistry()

	p := Partition{}.Merge(reg,
		[]FilledField{{FieldID: "name", Value: "Ada"}},
		[]MissingField{{FieldID: "age", Required: true}},
	)

	require.Len(t, p.Filled, 1)
	assert.Equal(t, "name", p.Filled[0].FieldID)
	require.Len(t, p.Missing, 1)
	assert.Equal(t, "age", p.Missing[0].FieldID)
}

func TestPartitionMergeExtractionWins(t *testing.T) {
	reg := testRegistry()

	prior := Partition{
		Filled:  []FilledField{{FieldID: "name", Value: "Ada"}},
		Missing: []MissingField{{FieldID: "age"}},
	}

	// A later turn revises the name and resolves the age.
	p := prior.Merge(reg,
		[]FilledField{{FieldID: "name", Value: "Grace"}, {FieldID: "age", Value: "36"}},
		nil,
	)

	require.Len(t, p.Filled, 2)
	name := p.Filled[0]
	assert.Equal(t, "Grace", name.Value)
	assert.Empty(t, p.Missing)
}

func TestPartitionMergeMutualExclusion(t *testing.T) {
	reg := testRegistry()

	// The same field reported in both sets ends up filled only.
	p := Partition{}.Merge(reg,
		[]FilledField{{FieldID: "name", Value: "Ada"}},
		[]MissingField{{FieldID: "name"}, {FieldID: "age"}},
	)

	require.Len(t, p.Filled, 1)
	assert.Equal(t, "name", p.Filled[0].FieldID)
	require.Len(t, p.Missing, 1)
	assert.Equal(t, "age", p.Missing[0].FieldID)

	// And the reverse transition: a filled field reported missing again
	// moves back to the missing set.
	p = p.Merge(reg, nil, []MissingField{{FieldID: "name", ValidationMessage: "needs a family name"}})
	assert.Empty(t, p.Filled)
	require.Len(t, p.Missing, 2)
}

func TestPartitionMergeDropsUnknownIDs(t *testing.T) {
	reg := testRegistry()

	p := Partition{}.Merge(reg,
		[]FilledField{{FieldID: "ghost", Value: "boo"}},
		[]MissingField{{FieldID: "phantom"}},
	)

	assert.Empty(t, p.Filled)
	assert.Empty(t, p.Missing)
}

func TestPartitionFill(t *testing.T) {
	p := Partition{
		Missing: []MissingField{{FieldID: "age"}, {FieldID: "color"}},
	}

	p = p.Fill("age", "42")

	require.Len(t, p.Filled, 1)
	assert.Equal(t, FilledField{FieldID: "age", Value: "42"}, p.Filled[0])
	require.Len(t, p.Missing, 1)
	assert.Equal(t, "color", p.Missing[0].FieldID)
}

func TestAsMissing(t *testing.T) {
	f := FormField{
		FieldID:  "color",
		Label:    "Favorite color",
		Type:     FieldTypeSelect,
		Options:  []string{"red", "blue"},
		Required: true,
	}

	mf := f.AsMissing("pick one of the options")
	assert.Equal(t, "color", mf.FieldID)
	assert.Equal(t, []string{"red", "blue"}, mf.Options)
	assert.Equal(t, "pick one of the options", mf.ValidationMessage)

	// The option slice must not alias the source field.
	mf.Options[0] = "green"
	assert.Equal(t, "red", f.Options[0])
}
