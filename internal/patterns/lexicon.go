package patterns

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the banned word lists used to scan generated text.
type Lexicon struct {
	VagueVerbs           []string `yaml:"vagueVerbs"`
	UnsupportedAbsolutes []string `yaml:"unsupportedAbsolutes"`
}

// DefaultLexicon returns the built-in banned word lists.
func DefaultLexicon() Lexicon {
	return Lexicon{
		VagueVerbs: []string{
			"improve",
			"optimize",
			"leverage",
			"enhance",
			"streamline",
			"empower",
			"facilitate",
			"maximize",
			"revolutionize",
			"transform",
			"unlock",
			"boost",
		},
		UnsupportedAbsolutes: []string{
			"always",
			"never",
			"every",
			"everyone",
			"nobody",
			"guaranteed",
			"completely",
			"impossible",
			"all",
			"none",
		},
	}
}

// LoadLexicon reads a YAML lexicon from path. An empty path or a missing file yields the
// default lexicon; a list left empty in the file keeps its default.
func LoadLexicon(path string, logger *slog.Logger) (Lexicon, error) {
	lex := DefaultLexicon()
	if path == "" {
		return lex, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("lexicon file not found, using defaults", slog.String("path", path))
			return lex, nil
		}
		return Lexicon{}, fmt.Errorf("read lexicon: %w", err)
	}

	var file Lexicon
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}
	if words := normalise(file.VagueVerbs); len(words) > 0 {
		lex.VagueVerbs = words
	}
	if words := normalise(file.UnsupportedAbsolutes); len(words) > 0 {
		lex.UnsupportedAbsolutes = words
	}
	return lex, nil
}

func normalise(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
