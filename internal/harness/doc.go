// Package harness runs YAML conformance scenarios against the recipe
// repository.
//
// A scenario is a list of repository operations followed by assertions on
// the resulting collection. Each run gets a fresh in-memory database, a
// deterministic clock and sequential ids, so the trace and final state are
// identical across runs and can be compared against golden files.
//
// # Scenario Format
//
//	name: inbox_insert_at
//	description: "Moving an inbox recipe to a position shifts the rest"
//	setup:
//	  - op: create_recipe
//	    args: { title: Bread }
//	  - op: create_inbox_recipe
//	    args: { title: Soup, sender: Nonna }
//	flow:
//	  - op: move_to_library
//	    args: { recipe: Soup, at: 0 }
//	  - op: move_to_library
//	    args: { recipe: Soup }
//	    expect: { error: INVALID_STATE }
//	assertions:
//	  - type: library_order
//	    titles: [Soup, Bread]
//	  - type: dense
//
// Recipes are addressed by title and owners by name. Child operations take
// a recipe, a kind and a zero-based index. A flow step without expect must
// succeed; setup steps always must.
//
// # Assertion Types
//
//   - library_order: library titles in display order
//   - inbox_order: inbox titles, newest first
//   - child_order: one child collection of a recipe by display value
//   - recipe_count: recipes across both partitions
//   - dense: every stored ordering is numbered 0..n-1
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/inbox_insert_at.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
