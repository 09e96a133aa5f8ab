package model

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// HexColor is an upper-case "#RRGGBB" color.
type HexColor string

// ParseHexColor accepts "#RGB" or "#RRGGBB" (case-insensitive) and returns
// the normalized "#RRGGBB" form.
func ParseHexColor(s string) (HexColor, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return "", fmt.Errorf("color %q must start with #", s)
	}
	digits := strings.ToUpper(s[1:])
	for _, r := range digits {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'F') {
			return "", fmt.Errorf("color %q has non-hex digit %q", s, r)
		}
	}
	switch len(digits) {
	case 6:
		return HexColor("#" + digits), nil
	case 3:
		var b strings.Builder
		b.WriteByte('#')
		for i := 0; i < 3; i++ {
			b.WriteByte(digits[i])
			b.WriteByte(digits[i])
		}
		return HexColor(b.String()), nil
	default:
		return "", fmt.Errorf("color %q must have 3 or 6 hex digits", s)
	}
}

// FontName is one of the card typefaces.
type FontName string

const (
	FontSerif       FontName = "serif"
	FontSans        FontName = "sans"
	FontRounded     FontName = "rounded"
	FontMono        FontName = "mono"
	FontHandwritten FontName = "handwritten"
)

// Fonts lists every accepted FontName.
var Fonts = []FontName{FontSerif, FontSans, FontRounded, FontMono, FontHandwritten}

// ParseFontName validates a font name. Empty selects FontSerif.
func ParseFontName(s string) (FontName, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FontSerif, nil
	}
	for _, f := range Fonts {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown font %q", s)
}

// Default card colors used when the caller leaves them empty.
const (
	DefaultPrimary   HexColor = "#F4E9D8"
	DefaultSecondary HexColor = "#7A4E2D"
)

// DefaultStyle is the style of a recipe created without styling input.
func DefaultStyle() Style {
	return Style{Font: FontSerif, Primary: DefaultPrimary, Secondary: DefaultSecondary}
}

// Validate checks coordinate ranges.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return NewValidationError("location.latitude", fmt.Sprintf("latitude %v out of range", l.Latitude))
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return NewValidationError("location.longitude", fmt.Sprintf("longitude %v out of range", l.Longitude))
	}
	return nil
}

// NormalizeText trims surrounding whitespace and applies NFC normalization
// so visually identical strings compare equal in the store.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// RequireText normalizes s and reports a validation error naming field
// when the result is empty.
func RequireText(field, s string) (string, error) {
	s = NormalizeText(s)
	if s == "" {
		return "", NewValidationError(field, field+" is required")
	}
	return s, nil
}
