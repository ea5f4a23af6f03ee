package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-yaml"
	"gitlab.com/tozd/go/errors"

	"github.com/editkit/hilite/pkg/grammar"
)

// StyleConfig is one category's appearance in a render theme file.
type StyleConfig struct {
	Foreground string `yaml:"foreground"`
	Background string `yaml:"background"`
	Bold       bool   `yaml:"bold"`
	Italic     bool   `yaml:"italic"`
	Underline  bool   `yaml:"underline"`
}

// Theme maps category names to terminal styles.
type Theme struct {
	Categories map[string]StyleConfig `yaml:"categories"`
}

func loadTheme(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading theme %s: %w", path, err)
	}
	var t Theme
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Errorf("parsing theme %s: %w", path, err)
	}
	return &t, nil
}

func defaultTheme() *Theme {
	return &Theme{Categories: map[string]StyleConfig{
		string(grammar.Keyword):  {Foreground: "5", Bold: true},
		string(grammar.Type):     {Foreground: "6"},
		string(grammar.String):   {Foreground: "2"},
		string(grammar.Comment):  {Foreground: "8", Italic: true},
		string(grammar.Number):   {Foreground: "3"},
		string(grammar.Symbols):  {Foreground: "4"},
		string(grammar.CBracket): {Foreground: "4", Bold: true},
		string(grammar.Variable): {Foreground: "1"},
		string(grammar.Preproc):  {Foreground: "13"},
		string(grammar.Todo):     {Foreground: "0", Background: "11"},
	}}
}

// Style builds the lipgloss style for a category; unthemed categories render
// unstyled.
func (t *Theme) Style(cat grammar.Category) lipgloss.Style {
	style := lipgloss.NewStyle()
	cfg, ok := t.Categories[string(cat)]
	if !ok {
		return style
	}
	if cfg.Foreground != "" {
		style = style.Foreground(lipgloss.Color(cfg.Foreground))
	}
	if cfg.Background != "" {
		style = style.Background(lipgloss.Color(cfg.Background))
	}
	return style.Bold(cfg.Bold).Italic(cfg.Italic).Underline(cfg.Underline)
}
