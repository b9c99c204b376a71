package normalize

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Lexicon is a per-locale detection vocabulary: characteristic
// function words plus locale-specific diacritics that act as a strong
// signal. Additional locales plug in via YAML without code changes.
type Lexicon struct {
	Code       string   `yaml:"code" json:"code"`
	Words      []string `yaml:"words" json:"words"`
	Diacritics string   `yaml:"diacritics" json:"diacritics"`
}

// diacriticWeight is the bonus per diacritic occurrence; one umlaut
// outweighs several shared function words.
const diacriticWeight = 5

// DefaultLexicons cover the two shipped locales.
func DefaultLexicons() []Lexicon {
	return []Lexicon{
		{
			Code: "de",
			Words: []string{
				"der", "die", "das", "und", "ist", "nicht", "mit", "für",
				"auf", "eine", "ein", "von", "zu", "im", "den", "sich",
				"auch", "werden", "bei", "oder",
			},
			Diacritics: "äöüßÄÖÜ",
		},
		{
			Code: "en",
			Words: []string{
				"the", "and", "is", "not", "with", "for", "on", "a",
				"an", "of", "to", "in", "that", "this", "are", "was",
				"be", "have", "it", "at",
			},
			Diacritics: "",
		},
	}
}

// LoadLexicons reads locale lexicons from a YAML file.
func LoadLexicons(path string) ([]Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicons: %w", err)
	}
	var lexicons []Lexicon
	if err := yaml.Unmarshal(data, &lexicons); err != nil {
		return nil, fmt.Errorf("parse lexicons: %w", err)
	}
	for _, l := range lexicons {
		if l.Code == "" {
			return nil, fmt.Errorf("lexicon without code")
		}
	}
	return lexicons, nil
}

// detectLanguage scores the text against every lexicon and returns the
// winning code. Ties or no signal return empty.
func detectLanguage(text string, lexicons []Lexicon) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	lower := strings.ToLower(text)
	words := strings.Fields(lower)

	best := ""
	bestScore := 0
	tied := false

	for _, lexicon := range lexicons {
		score := 0

		wordSet := make(map[string]bool, len(lexicon.Words))
		for _, w := range lexicon.Words {
			wordSet[w] = true
		}
		for _, w := range words {
			w = strings.Trim(w, ".,;:!?()\"'")
			if wordSet[w] {
				score++
			}
		}

		for _, r := range lexicon.Diacritics {
			score += diacriticWeight * strings.Count(text, string(r))
		}

		if score > bestScore {
			bestScore = score
			best = lexicon.Code
			tied = false
		} else if score == bestScore && score > 0 {
			tied = true
		}
	}

	if tied || bestScore == 0 {
		return ""
	}
	return best
}

// supportedLanguage reports whether the code belongs to a loaded lexicon.
func supportedLanguage(code string, lexicons []Lexicon) bool {
	for _, l := range lexicons {
		if l.Code == code {
			return true
		}
	}
	return false
}
