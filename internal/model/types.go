package model

import "time"

// Recipe is the root of the aggregate.
type Recipe struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	OwnerID     *string   `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
	Style       Style     `json:"style" yaml:"style"`
	Location    *Location `json:"location,omitempty" yaml:"location,omitempty"`
	InInbox     bool      `json:"in_inbox" yaml:"in_inbox"`
	SortOrder   int       `json:"sort_order" yaml:"sort_order"` // library position; zero and ignored in the inbox
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	SenderName  string    `json:"sender_name,omitempty" yaml:"sender_name,omitempty"`
}

// Style holds the presentation choices stored with a recipe card.
type Style struct {
	Font      FontName `json:"font" yaml:"font"`
	Primary   HexColor `json:"primary" yaml:"primary"`
	Secondary HexColor `json:"secondary" yaml:"secondary"`
}

// Location is where a recipe comes from.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	PlaceName string  `json:"place_name,omitempty" yaml:"place_name,omitempty"`
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	ID        string `json:"id"`
	RecipeID  string `json:"recipe_id"`
	Name      string `json:"name"`
	Quantity  string `json:"quantity,omitempty"` // free text, never parsed
	SortOrder int    `json:"sort_order"`
}

// Step is one instruction.
type Step struct {
	ID          string `json:"id"`
	RecipeID    string `json:"recipe_id"`
	Instruction string `json:"instruction"`
	SortOrder   int    `json:"sort_order"`
}

// AncestryStep records one hop of a recipe's journey through a family.
type AncestryStep struct {
	ID         string `json:"id"`
	RecipeID   string `json:"recipe_id"`
	Country    string `json:"country"`
	Region     string `json:"region,omitempty"`
	RoughDate  string `json:"rough_date,omitempty"`
	Note       string `json:"note,omitempty"`
	Generation *int   `json:"generation,omitempty"`
	SortOrder  int    `json:"sort_order"`
}

// Photo references an opaque blob held by the blob store.
type Photo struct {
	ID        string    `json:"id"`
	RecipeID  string    `json:"recipe_id"`
	BlobRef   string    `json:"blob_ref"`
	CreatedAt time.Time `json:"created_at"`
	SortOrder int       `json:"sort_order"`
}

// AudioNote references a narration file managed by the audio service.
type AudioNote struct {
	ID        string    `json:"id"`
	RecipeID  string    `json:"recipe_id"`
	Filename  string    `json:"filename"`
	Duration  float64   `json:"duration"` // seconds
	CreatedAt time.Time `json:"created_at"`
}

// Owner is the person a recipe is attributed to.
type Owner struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoRef string `json:"photo_ref,omitempty"`
}

// Aggregate is a recipe together with everything it exclusively owns.
// Child slices are in canonical order: ascending SortOrder for ordered
// kinds, newest first for audio notes.
type Aggregate struct {
	Recipe      Recipe         `json:"recipe"`
	Ingredients []Ingredient   `json:"ingredients"`
	Steps       []Step         `json:"steps"`
	Ancestry    []AncestryStep `json:"ancestry"`
	Photos      []Photo        `json:"photos"`
	AudioNotes  []AudioNote    `json:"audio_notes"`
}

// PrimaryAudio returns the most recently created audio note, or nil.
func (a *Aggregate) PrimaryAudio() *AudioNote {
	if len(a.AudioNotes) == 0 {
		return nil
	}
	return &a.AudioNotes[0]
}

// ChildKind identifies one of the ordered child collections of a recipe.
type ChildKind string

const (
	KindIngredient ChildKind = "ingredient"
	KindStep       ChildKind = "step"
	KindAncestry   ChildKind = "ancestry"
	KindPhoto      ChildKind = "photo"
)

// ChildKinds lists every ordered child kind.
var ChildKinds = []ChildKind{KindIngredient, KindStep, KindAncestry, KindPhoto}

// ParseChildKind converts a user-supplied string to a ChildKind.
func ParseChildKind(s string) (ChildKind, error) {
	for _, k := range ChildKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", NewValidationError("kind", "unknown child kind "+s)
}
