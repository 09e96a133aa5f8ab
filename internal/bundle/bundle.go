// Package bundle moves a recipe collection between installs as a single
// YAML document.
//
// A bundle lists the library in display order followed by the inbox,
// oldest first, so applying it recreates both views as exported. Photos
// travel inline as base64. Audio notes stay behind: their files belong to
// the local audio directory.
//
// Parse checks a document against the CUE schema in schema.cue before
// decoding it, so malformed bundles are rejected with field paths rather
// than half-applied.
package bundle

import (
	"bytes"
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

// Version is the bundle format version written by Export.
const Version = 1

//go:embed schema.cue
var schemaSource string

// Bundle is the root document.
type Bundle struct {
	Version    int      `yaml:"version" json:"version"`
	ExportedAt string   `yaml:"exported_at,omitempty" json:"exported_at,omitempty"`
	Owners     []Owner  `yaml:"owners,omitempty" json:"owners,omitempty"`
	Recipes    []Recipe `yaml:"recipes" json:"recipes"`
}

// Owner is referenced from recipes by Key.
type Owner struct {
	Key      string `yaml:"key" json:"key"`
	Name     string `yaml:"name" json:"name"`
	PhotoRef string `yaml:"photo_ref,omitempty" json:"photo_ref,omitempty"`
}

// Recipe is one recipe with its ordered children.
type Recipe struct {
	Title       string          `yaml:"title" json:"title"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Owner       string          `yaml:"owner,omitempty" json:"owner,omitempty"`
	Style       *Style          `yaml:"style,omitempty" json:"style,omitempty"`
	Location    *model.Location `yaml:"location,omitempty" json:"location,omitempty"`
	Inbox       bool            `yaml:"inbox,omitempty" json:"inbox,omitempty"`
	Sender      string          `yaml:"sender,omitempty" json:"sender,omitempty"`
	Ingredients []Ingredient    `yaml:"ingredients,omitempty" json:"ingredients,omitempty"`
	Steps       []string        `yaml:"steps,omitempty" json:"steps,omitempty"`
	Ancestry    []Ancestry      `yaml:"ancestry,omitempty" json:"ancestry,omitempty"`
	Photos      []Photo         `yaml:"photos,omitempty" json:"photos,omitempty"`
}

// Style mirrors model.Style with plain strings.
type Style struct {
	Font      string `yaml:"font,omitempty" json:"font,omitempty"`
	Primary   string `yaml:"primary,omitempty" json:"primary,omitempty"`
	Secondary string `yaml:"secondary,omitempty" json:"secondary,omitempty"`
}

// Ingredient is one ingredient line.
type Ingredient struct {
	Name     string `yaml:"name" json:"name"`
	Quantity string `yaml:"quantity,omitempty" json:"quantity,omitempty"`
}

// Ancestry is one hop of a recipe's journey.
type Ancestry struct {
	Country    string `yaml:"country" json:"country"`
	Region     string `yaml:"region,omitempty" json:"region,omitempty"`
	RoughDate  string `yaml:"rough_date,omitempty" json:"rough_date,omitempty"`
	Note       string `yaml:"note,omitempty" json:"note,omitempty"`
	Generation *int   `yaml:"generation,omitempty" json:"generation,omitempty"`
}

// Photo carries image bytes as standard base64.
type Photo struct {
	Data string `yaml:"data" json:"data"`
}

// Parse validates data against the bundle schema and decodes it.
func Parse(data []byte) (*Bundle, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var b Bundle
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if err := b.checkOwners(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Marshal renders b as YAML.
func Marshal(b *Bundle) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// validate unifies doc with #Bundle and requires a concrete result.
func validate(doc any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile bundle schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Bundle"))

	v := ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return fmt.Errorf("bundle: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("bundle does not match schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// checkOwners verifies owner keys are unique and every recipe references
// a declared owner.
func (b *Bundle) checkOwners() error {
	keys := make(map[string]bool, len(b.Owners))
	for _, o := range b.Owners {
		if keys[o.Key] {
			return fmt.Errorf("bundle: duplicate owner key %q", o.Key)
		}
		keys[o.Key] = true
	}
	for i, r := range b.Recipes {
		if r.Owner != "" && !keys[r.Owner] {
			return fmt.Errorf("bundle: recipes[%d] references unknown owner %q", i, r.Owner)
		}
		if r.Inbox && r.Sender == "" {
			return fmt.Errorf("bundle: recipes[%d] is in the inbox but has no sender", i)
		}
	}
	return nil
}
