package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
	"github.com/tomioM/recipe-voyage-sub000/internal/repository"
	"github.com/tomioM/recipe-voyage-sub000/internal/store"
	"github.com/tomioM/recipe-voyage-sub000/internal/testutil"
)

// IDPrefix prefixes every id the harness generates.
const IDPrefix = "id"

// Harness is the test execution engine.
// It runs scenarios against a real repository with a deterministic clock
// and id generator.
type Harness struct {
	store  *store.Store
	repo   *repository.Repository
	audio  *audioRecorder
	logger *slog.Logger
}

// audioRecorder stands in for the audio service and remembers which files
// the repository asked it to delete.
type audioRecorder struct {
	mu      sync.Mutex
	deleted []string
}

func (a *audioRecorder) DeleteFile(_ context.Context, filename string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, filename)
	return nil
}

func (a *audioRecorder) since(n int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n >= len(a.deleted) {
		return nil
	}
	return append([]string(nil), a.deleted[n:]...)
}

func (a *audioRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.deleted)
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. A failing setup step
// or a malformed step argument aborts the run with an error; a flow step
// whose outcome differs from its expect clause is recorded in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audio := &audioRecorder{}
	repo, err := repository.New(ctx, st,
		repository.WithClock(testutil.NewDeterministicClock()),
		repository.WithIDGenerator(testutil.NewSequentialIDGenerator(IDPrefix)),
		repository.WithLogger(logger),
		repository.WithAudio(audio),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	h := &Harness{store: st, repo: repo, audio: audio, logger: logger}
	result := NewResult()

	for i, step := range scenario.Setup {
		event, err := h.execute(ctx, "setup", step)
		if err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Op, err)
		}
		result.AddTrace(event)
		if event.Outcome != OutcomeOK {
			return nil, fmt.Errorf("setup[%d] %s failed with %s", i, step.Op, event.Outcome)
		}
	}

	for i, step := range scenario.Flow {
		event, err := h.execute(ctx, "flow", step)
		if err != nil {
			return nil, fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		}
		result.AddTrace(event)
		if want := step.Expect.Outcome(); event.Outcome != want {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected %s, got %s", i, step.Op, want, event.Outcome))
		}
		h.logger.Info("flow step completed", "step", i, "op", step.Op, "outcome", event.Outcome)
	}

	state, err := h.captureState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture final state: %w", err)
	}
	result.State = state

	actx := &AssertionContext{Ctx: ctx, Store: st}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step. An operation failure carrying a model error code
// becomes the event outcome; any other error means the step is malformed.
func (h *Harness) execute(ctx context.Context, phase string, step Step) (TraceEvent, error) {
	event := TraceEvent{Phase: phase, Op: step.Op, Args: step.Args}
	a := args(step.Args)
	before := h.audio.count()

	id, err := h.invoke(ctx, step.Op, a)
	event.Outcome = OutcomeOK
	if err != nil {
		code := model.CodeOf(err)
		if code == "" {
			return event, err
		}
		event.Outcome = string(code)
	} else {
		event.ID = id
	}
	event.Deleted = h.audio.since(before)
	return event, nil
}

// invoke dispatches op and returns the id of the created entity, if any.
func (h *Harness) invoke(ctx context.Context, op string, a args) (string, error) {
	r := h.repo
	switch op {
	case "create_owner":
		name, err := a.str("name")
		if err != nil {
			return "", err
		}
		o, opErr := r.CreateOwner(ctx, name, a.optStr("photo_ref"))
		return o.ID, opErr

	case "create_recipe", "create_inbox_recipe", "update_recipe":
		in, err := h.recipeInput(ctx, a)
		if err != nil {
			return "", err
		}
		var rec model.Recipe
		var opErr error
		switch op {
		case "create_recipe":
			rec, opErr = r.CreateRecipe(ctx, in)
		case "create_inbox_recipe":
			sender, err := a.str("sender")
			if err != nil {
				return "", err
			}
			rec, opErr = r.CreateInboxRecipe(ctx, in, sender)
		default:
			id, err := h.recipeRef(a)
			if err != nil {
				return "", err
			}
			_, opErr = r.UpdateRecipe(ctx, id, in)
			return "", opErr
		}
		return rec.ID, opErr

	case "delete_recipe":
		id, err := h.recipeRef(a)
		if err != nil {
			return "", err
		}
		return "", r.DeleteRecipe(ctx, id)

	case "move_to_library":
		id, err := h.recipeRef(a)
		if err != nil {
			return "", err
		}
		at, err := a.optInt("at")
		if err != nil {
			return "", err
		}
		_, opErr := r.MoveFromInboxToLibrary(ctx, id, at)
		return "", opErr

	case "reorder_library":
		from, to, err := a.fromTo()
		if err != nil {
			return "", err
		}
		return "", r.ReorderLibrary(ctx, from, to)

	case "send_to_inbox":
		id, err := h.recipeRef(a)
		if err != nil {
			return "", err
		}
		sender, err := a.str("sender")
		if err != nil {
			return "", err
		}
		return "", r.SendToInbox(ctx, id, sender)

	case "add_ingredient":
		id, err := h.recipeRef(a)
		if err != nil {
			return "", err
		}
		name, err := a.str("name")
		if err != nil {
			return "", err
		}
		ing, opErr := r.AddIngredient(ctx, id, name, a.optStr("quantity"))
		return ing.ID, opErr

	case "add_step":
		id, err := h.recipeRef(a)
		if err != nil {
			return "", err
		}
		text, err := a.str("instruction")
		if err != nil {
			return "", err
		}
		st, opErr := r.AddStep(ctx, id, text)
		return st.ID, opErr

	case "add_ancestry_step":
		id, err := h.recipeRef(a)
		if err != nil {
			return "", err
		}
		in, err := ancestryInput(a)
		if err != nil {
			return "", err
		}
		st, opErr := r.AddAncestryStep(ctx, id, in)
		return st.ID, opErr

	case "update_ingredient":
		childID, err := h.childRef(ctx, a, model.KindIngredient)
		if err != nil {
			return "", err
		}
		name, err := a.str("name")
		if err != nil {
			return "", err
		}
		_, opErr := r.UpdateIngredient(ctx, childID, name, a.optStr("quantity"))
		return "", opErr

	case "update_step":
		childID, err := h.childRef(ctx, a, model.KindStep)
		if err != nil {
			return "", err
		}
		text, err := a.str("instruction")
		if err != nil {
			return "", err
		}
		_, opErr := r.UpdateStep(ctx, childID, text)
		return "", opErr

	case "reorder_children":
		id, err := h.recipeRef(a)
		if err != nil {
			return "", err
		}
		kind, err := a.str("kind")
		if err != nil {
			return "", err
		}
		from, to, err := a.fromTo()
		if err != nil {
			return "", err
		}
		return "", r.ReorderChildren(ctx, id, model.ChildKind(kind), from, to)

	case "remove_child":
		kind, err := a.str("kind")
		if err != nil {
			return "", err
		}
		childID, err := h.childRef(ctx, a, model.ChildKind(kind))
		if err != nil {
			return "", err
		}
		return "", r.RemoveChild(ctx, model.ChildKind(kind), childID)

	case "add_audio_note":
		id, err := h.recipeRef(a)
		if err != nil {
			return "", err
		}
		filename, err := a.str("filename")
		if err != nil {
			return "", err
		}
		duration, err := a.optFloat("duration")
		if err != nil {
			return "", err
		}
		n, opErr := r.AddAudioNote(ctx, id, filename, duration)
		return n.ID, opErr

	case "delete_audio_note":
		id, err := h.recipeRef(a)
		if err != nil {
			return "", err
		}
		index, err := a.int("index")
		if err != nil {
			return "", err
		}
		agg, err := r.Aggregate(ctx, id)
		if err != nil {
			return "", err
		}
		noteID := ""
		if index >= 0 && index < len(agg.AudioNotes) {
			noteID = agg.AudioNotes[index].ID
		}
		return "", r.DeleteAudioNote(ctx, noteID)
	}
	return "", fmt.Errorf("unknown op %q", op)
}

// recipeRef resolves args.recipe by title against the current snapshot.
func (h *Harness) recipeRef(a args) (string, error) {
	ref, err := a.str("recipe")
	if err != nil {
		return "", err
	}
	return resolveRecipe(h.repo.Snapshot(), ref), nil
}

func resolveRecipe(snap *repository.Snapshot, ref string) string {
	for _, part := range [][]model.Recipe{snap.Library, snap.Inbox} {
		for _, rec := range part {
			if rec.Title == ref {
				return rec.ID
			}
		}
	}
	return ref
}

// childRef resolves args.recipe and args.index to the id of a child of
// kind. A position outside the collection resolves to the empty id, which
// the repository reports as not found.
func (h *Harness) childRef(ctx context.Context, a args, kind model.ChildKind) (string, error) {
	recipeID, err := h.recipeRef(a)
	if err != nil {
		return "", err
	}
	index, err := a.int("index")
	if err != nil {
		return "", err
	}
	agg, err := h.repo.Aggregate(ctx, recipeID)
	if err != nil {
		return "", err
	}
	ids := childIDs(agg, kind)
	if index < 0 || index >= len(ids) {
		return "", nil
	}
	return ids[index], nil
}

func childIDs(agg model.Aggregate, kind model.ChildKind) []string {
	var ids []string
	switch kind {
	case model.KindIngredient:
		for _, c := range agg.Ingredients {
			ids = append(ids, c.ID)
		}
	case model.KindStep:
		for _, c := range agg.Steps {
			ids = append(ids, c.ID)
		}
	case model.KindAncestry:
		for _, c := range agg.Ancestry {
			ids = append(ids, c.ID)
		}
	case model.KindPhoto:
		for _, c := range agg.Photos {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (h *Harness) recipeInput(ctx context.Context, a args) (repository.RecipeInput, error) {
	title, err := a.str("title")
	if err != nil {
		return repository.RecipeInput{}, err
	}
	in := repository.RecipeInput{
		Title:          title,
		Description:    a.optStr("description"),
		Font:           a.optStr("font"),
		PrimaryColor:   a.optStr("primary"),
		SecondaryColor: a.optStr("secondary"),
	}
	if name := a.optStr("owner"); name != "" {
		id, err := h.ownerRef(ctx, name)
		if err != nil {
			return repository.RecipeInput{}, err
		}
		in.OwnerID = &id
	}
	return in, nil
}

// ownerRef resolves an owner by name, passing unknown names through.
func (h *Harness) ownerRef(ctx context.Context, name string) (string, error) {
	owners, err := h.repo.Owners(ctx)
	if err != nil {
		return "", err
	}
	for _, o := range owners {
		if o.Name == name {
			return o.ID, nil
		}
	}
	return name, nil
}

func ancestryInput(a args) (repository.AncestryInput, error) {
	country, err := a.str("country")
	if err != nil {
		return repository.AncestryInput{}, err
	}
	gen, err := a.optInt("generation")
	if err != nil {
		return repository.AncestryInput{}, err
	}
	return repository.AncestryInput{
		Country:    country,
		Region:     a.optStr("region"),
		RoughDate:  a.optStr("rough_date"),
		Note:       a.optStr("note"),
		Generation: gen,
	}, nil
}

// captureState reads both partitions and every child collection.
func (h *Harness) captureState(ctx context.Context) (FinalState, error) {
	snap := h.repo.Snapshot()
	state := FinalState{Library: []RecipeState{}, Inbox: []RecipeState{}}
	for _, rec := range snap.Library {
		rs, err := h.recipeState(ctx, rec)
		if err != nil {
			return FinalState{}, err
		}
		state.Library = append(state.Library, rs)
	}
	for _, rec := range snap.Inbox {
		rs, err := h.recipeState(ctx, rec)
		if err != nil {
			return FinalState{}, err
		}
		state.Inbox = append(state.Inbox, rs)
	}
	return state, nil
}

func (h *Harness) recipeState(ctx context.Context, rec model.Recipe) (RecipeState, error) {
	agg, err := h.repo.Aggregate(ctx, rec.ID)
	if err != nil {
		return RecipeState{}, err
	}
	rs := RecipeState{ID: rec.ID, Title: rec.Title, Sender: rec.SenderName}
	for _, c := range agg.Ingredients {
		v := c.Name
		if c.Quantity != "" {
			v += " (" + c.Quantity + ")"
		}
		rs.Ingredients = append(rs.Ingredients, v)
	}
	for _, c := range agg.Steps {
		rs.Steps = append(rs.Steps, c.Instruction)
	}
	for _, c := range agg.Ancestry {
		v := c.Country
		if c.Region != "" {
			v += ", " + c.Region
		}
		rs.Ancestry = append(rs.Ancestry, v)
	}
	for _, n := range agg.AudioNotes {
		rs.AudioNotes = append(rs.AudioNotes, n.Filename)
	}
	return rs, nil
}

// args wraps YAML-decoded step arguments.
type args map[string]any

func (a args) str(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("args.%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("args.%s: expected string, got %T", key, v)
	}
	return s, nil
}

func (a args) optStr(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a args) int(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("args.%s is required", key)
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("args.%s: expected integer, got %T", key, v)
	}
	return n, nil
}

func (a args) optInt(key string) (*int, error) {
	if _, ok := a[key]; !ok {
		return nil, nil
	}
	n, err := a.int(key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (a args) optFloat(key string) (float64, error) {
	switch v := a[key].(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("args.%s: expected number, got %T", key, v)
	}
}

func (a args) fromTo() (int, int, error) {
	from, err := a.int("from")
	if err != nil {
		return 0, 0, err
	}
	to, err := a.int("to")
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}
