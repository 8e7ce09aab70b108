package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangwayhq/gangway/pkg/flow"
)

func TestDefaultRegistryIsValid(t *testing.T) {
	reg := Default()

	assert.Equal(t, 8, reg.Len())
	assert.Equal(t, 0, reg.Index("welcome"))
	assert.True(t, reg.Contains("final-review"))

	step, ok := reg.Step("direct-deposit")
	require.True(t, ok)
	assert.False(t, step.Required, "payroll setup is skippable")
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]flow.Step{
		{ID: "a", Name: "A", Order: 1, EstimatedMinutes: 1},
		{ID: "a", Name: "A again", Order: 2, EstimatedMinutes: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewRejectsUnknownDependency(t *testing.T) {
	_, err := New([]flow.Step{
		{ID: "a", Name: "A", Order: 1, EstimatedMinutes: 1, Dependencies: []string{"ghost"}},
	})
	require.Error(t, err)
}

func TestNewRejectsSelfDependency(t *testing.T) {
	_, err := New([]flow.Step{
		{ID: "a", Name: "A", Order: 1, EstimatedMinutes: 1, Dependencies: []string{"a"}},
	})
	require.Error(t, err)
}

func TestNewRejectsDependencyCycle(t *testing.T) {
	_, err := New([]flow.Step{
		{ID: "a", Name: "A", Order: 1, EstimatedMinutes: 1, Dependencies: []string{"c"}},
		{ID: "b", Name: "B", Order: 2, EstimatedMinutes: 1, Dependencies: []string{"a"}},
		{ID: "c", Name: "C", Order: 3, EstimatedMinutes: 1, Dependencies: []string{"b"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestNewRejectsOptionalGovernmentStep(t *testing.T) {
	_, err := New([]flow.Step{
		{ID: "a", Name: "A", Order: 1, EstimatedMinutes: 1, GovernmentRequired: true},
	})
	require.Error(t, err)
}

func TestDependenciesDefaultToPriorRequiredSteps(t *testing.T) {
	reg, err := New([]flow.Step{
		{ID: "a", Name: "A", Order: 1, Required: true, EstimatedMinutes: 1},
		{ID: "opt", Name: "Optional", Order: 2, EstimatedMinutes: 1},
		{ID: "b", Name: "B", Order: 3, Required: true, EstimatedMinutes: 1},
		{ID: "c", Name: "C", Order: 4, Required: true, EstimatedMinutes: 1, Dependencies: []string{"a"}},
	})
	require.NoError(t, err)

	// No explicit deps: every earlier required step gates it.
	assert.Equal(t, []string{"a"}, reg.Dependencies("b"))
	assert.NotContains(t, reg.Dependencies("b"), "opt", "optional steps never gate")
	assert.Nil(t, reg.Dependencies("ghost"), "unknown ids have no deps")

	// Explicit deps win over the positional default.
	assert.Equal(t, []string{"a"}, reg.Dependencies("c"))
}

func TestSingleStepShedsDependencies(t *testing.T) {
	reg := Default()

	single, err := reg.SingleStep("w4-form")
	require.NoError(t, err)
	assert.Equal(t, 1, single.Len())

	step, ok := single.Step("w4-form")
	require.True(t, ok)
	assert.Empty(t, step.Dependencies)
	assert.Empty(t, single.Dependencies("w4-form"))

	_, err = reg.SingleStep("missing")
	require.ErrorIs(t, err, flow.ErrStepNotFound)
}

func TestLoadYAML(t *testing.T) {
	data := []byte(`
steps:
  - id: intro
    name: Introduction
    order: 1
    required: true
    estimated_minutes: 2
  - id: forms
    name: Forms
    order: 2
    required: true
    estimated_minutes: 10
    dependencies: [intro]
`)
	reg, err := LoadYAML(data)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"intro"}, reg.Dependencies("forms"))

	_, err = LoadYAML([]byte("steps: [{id: '', name: X}]"))
	require.Error(t, err)
}
