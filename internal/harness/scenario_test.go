package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	scenarioPath := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
setup:
  - op: create_recipe
    args: { title: Bread }
flow:
  - op: reorder_library
    args: { from: 0, to: 1 }
    expect: { error: INVALID_STATE }
assertions:
  - type: library_order
    titles: [Bread]
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	require.Len(t, scenario.Setup, 1)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "Bread", scenario.Setup[0].Args["title"])
	assert.Equal(t, 1, scenario.Flow[0].Args["to"])
	assert.Equal(t, "INVALID_STATE", scenario.Flow[0].Expect.Outcome())
	assert.Equal(t, []string{"Bread"}, scenario.Assertions[0].Titles)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Testdata(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		_, err := LoadScenario(path)
		assert.NoError(t, err, path)
	}
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
flow: [{ op: create_recipe, args: { title: A } }]
assertions: [{ type: dense }]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
flow: [{ op: create_recipe, args: { title: A } }]
assertions: [{ type: dense }]
`,
			wantErr: "description is required",
		},
		{
			name: "empty flow",
			content: `
name: n
description: d
flow: []
assertions: [{ type: dense }]
`,
			wantErr: "flow list is required",
		},
		{
			name: "missing assertions",
			content: `
name: n
description: d
flow: [{ op: create_recipe, args: { title: A } }]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown field",
			content: `
name: n
description: d
flow: [{ op: create_recipe, args: { title: A } }]
assertion: [{ type: dense }]
`,
			wantErr: "failed to parse YAML",
		},
		{
			name: "unknown op",
			content: `
name: n
description: d
flow: [{ op: bake, args: {} }]
assertions: [{ type: dense }]
`,
			wantErr: `flow[0]: unknown op "bake"`,
		},
		{
			name: "missing op arg",
			content: `
name: n
description: d
flow: [{ op: move_to_library, args: { at: 0 } }]
assertions: [{ type: dense }]
`,
			wantErr: "move_to_library: args.recipe is required",
		},
		{
			name: "expect in setup",
			content: `
name: n
description: d
setup: [{ op: create_recipe, args: { title: "" }, expect: { error: VALIDATION } }]
flow: [{ op: create_recipe, args: { title: A } }]
assertions: [{ type: dense }]
`,
			wantErr: "setup[0]: expect is not allowed",
		},
		{
			name: "unknown assertion type",
			content: `
name: n
description: d
flow: [{ op: create_recipe, args: { title: A } }]
assertions: [{ type: final_state }]
`,
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name: "child_order without kind",
			content: `
name: n
description: d
flow: [{ op: create_recipe, args: { title: A } }]
assertions: [{ type: child_order, recipe: A }]
`,
			wantErr: "recipe and kind are required",
		},
		{
			name: "child_order with unknown kind",
			content: `
name: n
description: d
flow: [{ op: create_recipe, args: { title: A } }]
assertions: [{ type: child_order, recipe: A, kind: photo }]
`,
			wantErr: `unknown child kind "photo"`,
		},
		{
			name: "negative count",
			content: `
name: n
description: d
flow: [{ op: create_recipe, args: { title: A } }]
assertions: [{ type: recipe_count, count: -1 }]
`,
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOps_Sorted(t *testing.T) {
	ops := Ops()
	assert.Len(t, ops, len(opArgs))
	assert.IsIncreasing(t, ops)
	assert.Contains(t, ops, "move_to_library")
}
