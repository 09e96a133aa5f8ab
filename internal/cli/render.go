package cli

import (
	"fmt"
	"io"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

// result acknowledges a mutation.
type result struct {
	Action string      `json:"action"`
	Kind   string      `json:"kind"`
	ID     string      `json:"id,omitempty"`
	Entity interface{} `json:"entity,omitempty"`
}

func (r result) renderText(w io.Writer) {
	if r.ID == "" {
		fmt.Fprintf(w, "%s %s\n", r.Action, r.Kind)
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", r.Action, r.Kind, r.ID)
}

// recipeList is one of the two views.
type recipeList struct {
	View    string         `json:"view"`
	Version int64          `json:"version"`
	Recipes []model.Recipe `json:"recipes"`
}

func (l recipeList) renderText(w io.Writer) {
	if len(l.Recipes) == 0 {
		fmt.Fprintf(w, "%s is empty\n", l.View)
		return
	}
	for i, r := range l.Recipes {
		if r.InInbox {
			fmt.Fprintf(w, "- %s (from %s) [%s]\n", r.Title, r.SenderName, r.ID)
			continue
		}
		fmt.Fprintf(w, "%d. %s [%s]\n", i, r.Title, r.ID)
	}
}

// recipeDetail is a full aggregate.
type recipeDetail struct {
	model.Aggregate
}

func (d recipeDetail) renderText(w io.Writer) {
	r := d.Recipe
	fmt.Fprintf(w, "%s [%s]\n", r.Title, r.ID)
	if r.InInbox {
		fmt.Fprintf(w, "  inbox, from %s\n", r.SenderName)
	} else {
		fmt.Fprintf(w, "  library position %d\n", r.SortOrder)
	}
	if r.Description != "" {
		fmt.Fprintf(w, "  %s\n", r.Description)
	}
	if r.OwnerID != nil {
		fmt.Fprintf(w, "  owner %s\n", *r.OwnerID)
	}
	fmt.Fprintf(w, "  style %s %s/%s\n", r.Style.Font, r.Style.Primary, r.Style.Secondary)
	if loc := r.Location; loc != nil {
		fmt.Fprintf(w, "  from %.4f,%.4f %s\n", loc.Latitude, loc.Longitude, loc.PlaceName)
	}

	if len(d.Ingredients) > 0 {
		fmt.Fprintln(w, "Ingredients:")
		for _, in := range d.Ingredients {
			if in.Quantity != "" {
				fmt.Fprintf(w, "  %d. %s, %s [%s]\n", in.SortOrder, in.Name, in.Quantity, in.ID)
			} else {
				fmt.Fprintf(w, "  %d. %s [%s]\n", in.SortOrder, in.Name, in.ID)
			}
		}
	}
	if len(d.Steps) > 0 {
		fmt.Fprintln(w, "Steps:")
		for _, s := range d.Steps {
			fmt.Fprintf(w, "  %d. %s [%s]\n", s.SortOrder, s.Instruction, s.ID)
		}
	}
	if len(d.Ancestry) > 0 {
		fmt.Fprintln(w, "Ancestry:")
		for _, a := range d.Ancestry {
			fmt.Fprintf(w, "  %d. %s", a.SortOrder, a.Country)
			if a.Region != "" {
				fmt.Fprintf(w, ", %s", a.Region)
			}
			if a.RoughDate != "" {
				fmt.Fprintf(w, " (%s)", a.RoughDate)
			}
			if a.Generation != nil {
				fmt.Fprintf(w, " gen %d", *a.Generation)
			}
			fmt.Fprintf(w, " [%s]\n", a.ID)
		}
	}
	if len(d.Photos) > 0 {
		fmt.Fprintln(w, "Photos:")
		for _, p := range d.Photos {
			fmt.Fprintf(w, "  %d. %s [%s]\n", p.SortOrder, p.BlobRef, p.ID)
		}
	}
	if len(d.AudioNotes) > 0 {
		fmt.Fprintln(w, "Audio notes:")
		for _, n := range d.AudioNotes {
			fmt.Fprintf(w, "  %s %.1fs [%s]\n", n.Filename, n.Duration, n.ID)
		}
	}
}

// ownerList lists owners by name.
type ownerList struct {
	Owners []model.Owner `json:"owners"`
}

func (l ownerList) renderText(w io.Writer) {
	if len(l.Owners) == 0 {
		fmt.Fprintln(w, "no owners")
		return
	}
	for _, o := range l.Owners {
		fmt.Fprintf(w, "%s [%s]\n", o.Name, o.ID)
	}
}
