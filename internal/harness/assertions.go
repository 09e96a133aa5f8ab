package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/ordering"
	"github.com/tomioM/recipe-voyage-sub000/internal/store"
)

// Child collection names accepted by child_order.
const (
	ChildIngredients = "ingredient"
	ChildSteps       = "step"
	ChildAncestry    = "ancestry"
	ChildAudioNotes  = "audio_note"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v -> %s\n", event.Seq, event.Op, event.Args, event.Outcome)
		}
	}
	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for dense assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertLibraryOrder:
			err = assertTitles(AssertLibraryOrder, result.State.Library, assertion.Titles, result.Trace)
		case AssertInboxOrder:
			err = assertTitles(AssertInboxOrder, result.State.Inbox, assertion.Titles, result.Trace)
		case AssertChildOrder:
			err = assertChildOrder(result, assertion)
		case AssertRecipeCount:
			err = assertRecipeCount(result, assertion)
		case AssertDense:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: dense requires database context", i)
			} else {
				err = assertDense(actx.Ctx, actx.Store, result)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertTitles checks a partition's display order by title.
func assertTitles(kind string, recipes []RecipeState, want []string, trace []TraceEvent) error {
	got := make([]string, len(recipes))
	for i, r := range recipes {
		got[i] = r.Title
	}
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%q", want),
		Actual:   fmt.Sprintf("%q", got),
		Trace:    trace,
	}
}

// assertChildOrder checks one child collection of the recipe titled
// assertion.Recipe by display value.
func assertChildOrder(result *Result, assertion Assertion) error {
	rs, ok := findState(result.State, assertion.Recipe)
	if !ok {
		return &AssertionError{
			Type:     AssertChildOrder,
			Expected: fmt.Sprintf("recipe %q", assertion.Recipe),
			Actual:   "recipe not found",
			Trace:    result.Trace,
		}
	}

	var got []string
	switch assertion.Kind {
	case ChildIngredients:
		got = rs.Ingredients
	case ChildSteps:
		got = rs.Steps
	case ChildAncestry:
		got = rs.Ancestry
	case ChildAudioNotes:
		got = rs.AudioNotes
	default:
		return fmt.Errorf("child_order: unknown kind %q", assertion.Kind)
	}

	// A missing values list asserts an empty collection.
	if len(got) == 0 && len(assertion.Values) == 0 {
		return nil
	}
	if slices.Equal(got, assertion.Values) {
		return nil
	}
	return &AssertionError{
		Type:     AssertChildOrder,
		Expected: fmt.Sprintf("%s of %q = %q", assertion.Kind, assertion.Recipe, assertion.Values),
		Actual:   fmt.Sprintf("%q", got),
		Trace:    result.Trace,
	}
}

func assertRecipeCount(result *Result, assertion Assertion) error {
	got := len(result.State.Library) + len(result.State.Inbox)
	if got == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRecipeCount,
		Expected: fmt.Sprintf("%d recipes", assertion.Count),
		Actual:   fmt.Sprintf("%d recipes", got),
		Trace:    result.Trace,
	}
}

// assertDense checks that the library and every child collection of every
// recipe are numbered 0..n-1 in the store.
func assertDense(ctx context.Context, st *store.Store, result *Result) error {
	lib, err := st.LibraryOrder(ctx)
	if err != nil {
		return fmt.Errorf("dense: %w", err)
	}
	if err := ordering.Check(lib); err != nil {
		return &AssertionError{Type: AssertDense, Expected: "dense library order", Actual: err.Error()}
	}

	all := append(append([]RecipeState{}, result.State.Library...), result.State.Inbox...)
	for _, rs := range all {
		for _, kind := range model.ChildKinds {
			order, err := st.ChildOrder(ctx, kind, rs.ID)
			if err != nil {
				return fmt.Errorf("dense: %w", err)
			}
			if err := ordering.Check(order); err != nil {
				return &AssertionError{
					Type:     AssertDense,
					Expected: fmt.Sprintf("dense %s order for %q", kind, rs.Title),
					Actual:   err.Error(),
				}
			}
		}
	}
	return nil
}

func findState(state FinalState, title string) (RecipeState, bool) {
	for _, part := range [][]RecipeState{state.Library, state.Inbox} {
		for _, rs := range part {
			if rs.Title == title {
				return rs, true
			}
		}
	}
	return RecipeState{}, false
}
