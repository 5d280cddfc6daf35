package style

import (
	_ "embed"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var defaultStyles []byte

// ColorDef represents an adaptive color definition in YAML
type ColorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// StyleDef represents a style definition in YAML
type StyleDef struct {
	Bold        bool   `yaml:"bold,omitempty"`
	Italic      bool   `yaml:"italic,omitempty"`
	Underline   bool   `yaml:"underline,omitempty"`
	Foreground  string `yaml:"foreground,omitempty"`
	Background  string `yaml:"background,omitempty"`
	PaddingLeft int    `yaml:"paddingLeft,omitempty"`
}

// Config represents the complete styles configuration
type Config struct {
	Colors map[string]ColorDef `yaml:"colors"`
	Styles map[string]StyleDef `yaml:"styles"`
}

// Sheet maps semantic names to lipgloss styles
type Sheet struct {
	styles map[string]lipgloss.Style
	plain  bool
}

// LoadSheet builds a sheet from YAML style definitions. Styles are created
// through r so they honor its color profile.
func LoadSheet(r *lipgloss.Renderer, data []byte) (*Sheet, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to parse styles")
	}

	colors := make(map[string]lipgloss.AdaptiveColor, len(config.Colors))
	for name, def := range config.Colors {
		colors[name] = lipgloss.AdaptiveColor{Light: def.Light, Dark: def.Dark}
	}

	sheet := &Sheet{styles: make(map[string]lipgloss.Style, len(config.Styles))}
	for name, def := range config.Styles {
		sheet.styles[name] = buildStyle(r, def, colors)
	}
	return sheet, nil
}

// DefaultSheet returns the embedded styles bound to r
func DefaultSheet(r *lipgloss.Renderer) *Sheet {
	sheet, err := LoadSheet(r, defaultStyles)
	if err != nil {
		// The embedded sheet is part of the binary
		panic(err)
	}
	return sheet
}

// PlainSheet renders every name as unstyled text
func PlainSheet() *Sheet {
	return &Sheet{styles: map[string]lipgloss.Style{}, plain: true}
}

func buildStyle(r *lipgloss.Renderer, def StyleDef, colors map[string]lipgloss.AdaptiveColor) lipgloss.Style {
	style := r.NewStyle()

	if def.Bold {
		style = style.Bold(true)
	}
	if def.Italic {
		style = style.Italic(true)
	}
	if def.Underline {
		style = style.Underline(true)
	}

	if color, ok := colors[def.Foreground]; ok {
		style = style.Foreground(color)
	}
	if color, ok := colors[def.Background]; ok {
		style = style.Background(color)
	}

	if def.PaddingLeft > 0 {
		style = style.PaddingLeft(def.PaddingLeft)
	}
	return style
}

// Has reports whether the sheet defines name
func (s *Sheet) Has(name string) bool {
	_, ok := s.styles[name]
	return ok
}

// Render applies the named style to text. Unknown names render unstyled.
func (s *Sheet) Render(name, text string) string {
	if s.plain {
		return text
	}
	style, ok := s.styles[name]
	if !ok {
		return text
	}
	return style.Render(text)
}
