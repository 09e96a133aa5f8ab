package harness

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a sequence of repository
// operations followed by assertions on the resulting collection.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup establishes initial state. Every setup step must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the operations under test, each with an optional expectation.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step invokes one repository operation.
//
// Recipes are addressed by title and owners by name. A reference that
// matches nothing is passed through unchanged, so a scenario can exercise
// unknown ids. Children are addressed by kind and position.
type Step struct {
	Op     string         `yaml:"op"`
	Args   map[string]any `yaml:"args"`
	Expect *ExpectClause  `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a flow step.
type ExpectClause struct {
	// Error is the expected model error code. Empty means success.
	Error string `yaml:"error,omitempty"`
}

// Outcome returns the trace outcome the clause expects.
func (e *ExpectClause) Outcome() string {
	if e == nil || e.Error == "" {
		return OutcomeOK
	}
	return e.Error
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Titles is the expected partition order (library_order, inbox_order).
	Titles []string `yaml:"titles,omitempty"`

	// Recipe and Kind select a child collection (child_order).
	Recipe string `yaml:"recipe,omitempty"`
	Kind   string `yaml:"kind,omitempty"`

	// Values is the expected child order by display value (child_order).
	Values []string `yaml:"values,omitempty"`

	// Count is the expected number of recipes in both partitions (recipe_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertLibraryOrder = "library_order"
	AssertInboxOrder   = "inbox_order"
	AssertChildOrder   = "child_order"
	AssertRecipeCount  = "recipe_count"
	AssertDense        = "dense"
)

// opArgs lists the required argument keys of each supported operation.
var opArgs = map[string][]string{
	"create_owner":        {"name"},
	"create_recipe":       {"title"},
	"create_inbox_recipe": {"title", "sender"},
	"update_recipe":       {"recipe", "title"},
	"delete_recipe":       {"recipe"},
	"move_to_library":     {"recipe"},
	"reorder_library":     {"from", "to"},
	"send_to_inbox":       {"recipe", "sender"},
	"add_ingredient":      {"recipe", "name"},
	"add_step":            {"recipe", "instruction"},
	"add_ancestry_step":   {"recipe", "country"},
	"update_ingredient":   {"recipe", "index", "name"},
	"update_step":         {"recipe", "index", "instruction"},
	"reorder_children":    {"recipe", "kind", "from", "to"},
	"remove_child":        {"recipe", "kind", "index"},
	"add_audio_note":      {"recipe", "filename"},
	"delete_audio_note":   {"recipe", "index"},
}

// Ops returns the supported operation names, sorted.
func Ops() []string {
	ops := make([]string, 0, len(opArgs))
	for op := range opArgs {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed, setup steps must succeed", i)
		}
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Op == "" {
		return fmt.Errorf("op is required")
	}
	required, ok := opArgs[step.Op]
	if !ok {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	for _, key := range required {
		if _, ok := step.Args[key]; !ok {
			return fmt.Errorf("%s: args.%s is required", step.Op, key)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertLibraryOrder, AssertInboxOrder, AssertDense:
	case AssertChildOrder:
		if a.Recipe == "" || a.Kind == "" {
			return fmt.Errorf("assertions[%d]: recipe and kind are required for child_order", index)
		}
		switch a.Kind {
		case ChildIngredients, ChildSteps, ChildAncestry, ChildAudioNotes:
		default:
			return fmt.Errorf("assertions[%d]: unknown child kind %q", index, a.Kind)
		}
	case AssertRecipeCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for recipe_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
