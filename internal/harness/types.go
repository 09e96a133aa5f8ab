package harness

// OutcomeOK is the trace outcome of a step that succeeded.
const OutcomeOK = "ok"

// TraceEvent records one executed repository operation.
type TraceEvent struct {
	Seq   int            `json:"seq"`
	Phase string         `json:"phase"` // "setup" or "flow"
	Op    string         `json:"op"`
	Args  map[string]any `json:"args,omitempty"`

	// Outcome is "ok" or the model error code the operation failed with.
	Outcome string `json:"outcome"`

	// ID is the id of the entity the operation created, if any.
	ID string `json:"id,omitempty"`

	// Deleted lists audio files the operation asked the audio service to
	// remove.
	Deleted []string `json:"deleted,omitempty"`
}

// RecipeState is the visible state of one recipe after a scenario.
type RecipeState struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Sender      string   `json:"sender,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Steps       []string `json:"steps,omitempty"`
	Ancestry    []string `json:"ancestry,omitempty"`
	AudioNotes  []string `json:"audio_notes,omitempty"`
}

// FinalState is both partitions in display order.
type FinalState struct {
	Library []RecipeState `json:"library"`
	Inbox   []RecipeState `json:"inbox"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every setup and flow step in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// State is captured after the last flow step.
	State FinalState `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  FinalState{Library: []RecipeState{}, Inbox: []RecipeState{}},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends e with the next sequence number.
func (r *Result) AddTrace(e TraceEvent) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}
