package repository

import (
	"fmt"
	"math"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

// RecipeInput carries the user-editable fields of a recipe.
type RecipeInput struct {
	Title          string
	Description    string
	OwnerID        *string
	Font           string
	PrimaryColor   string
	SecondaryColor string
	Location       *model.Location
}

// recipe validates in and returns the normalized recipe fields. Partition,
// order, id and timestamps are left for the caller.
func (in RecipeInput) recipe() (model.Recipe, error) {
	title, err := model.RequireText("title", in.Title)
	if err != nil {
		return model.Recipe{}, err
	}

	font, err := model.ParseFontName(in.Font)
	if err != nil {
		return model.Recipe{}, model.NewValidationError("font", err.Error())
	}
	primary, err := colorOrDefault("primary_color", in.PrimaryColor, model.DefaultPrimary)
	if err != nil {
		return model.Recipe{}, err
	}
	secondary, err := colorOrDefault("secondary_color", in.SecondaryColor, model.DefaultSecondary)
	if err != nil {
		return model.Recipe{}, err
	}

	var loc *model.Location
	if in.Location != nil {
		if err := in.Location.Validate(); err != nil {
			return model.Recipe{}, err
		}
		l := *in.Location
		l.PlaceName = model.NormalizeText(l.PlaceName)
		loc = &l
	}

	var owner *string
	if in.OwnerID != nil && *in.OwnerID != "" {
		id := *in.OwnerID
		owner = &id
	}

	return model.Recipe{
		Title:       title,
		Description: model.NormalizeText(in.Description),
		OwnerID:     owner,
		Style:       model.Style{Font: font, Primary: primary, Secondary: secondary},
		Location:    loc,
	}, nil
}

func colorOrDefault(field, s string, def model.HexColor) (model.HexColor, error) {
	if s == "" {
		return def, nil
	}
	c, err := model.ParseHexColor(s)
	if err != nil {
		return "", model.NewValidationError(field, err.Error())
	}
	return c, nil
}

// AncestryInput carries the fields of an ancestry step.
type AncestryInput struct {
	Country    string
	Region     string
	RoughDate  string
	Note       string
	Generation *int
}

// MaxGeneration bounds AncestryInput.Generation.
const MaxGeneration = 99

func (in AncestryInput) step() (model.AncestryStep, error) {
	country, err := model.RequireText("country", in.Country)
	if err != nil {
		return model.AncestryStep{}, err
	}
	var gen *int
	if in.Generation != nil {
		g := *in.Generation
		if g < 0 || g > MaxGeneration {
			return model.AncestryStep{}, model.NewValidationError("generation",
				fmt.Sprintf("generation %d must be between 0 and %d", g, MaxGeneration))
		}
		gen = &g
	}
	return model.AncestryStep{
		Country:    country,
		Region:     model.NormalizeText(in.Region),
		RoughDate:  model.NormalizeText(in.RoughDate),
		Note:       model.NormalizeText(in.Note),
		Generation: gen,
	}, nil
}

func validateDuration(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return model.NewValidationError("duration", fmt.Sprintf("duration %v must be a non-negative number of seconds", d))
	}
	return nil
}
