package survey

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabularyYAML []byte

// HeaderMapping binds a spreadsheet header to a canonical question.
type HeaderMapping struct {
	Header   string     `yaml:"header" json:"header"`
	Question QuestionID `yaml:"question" json:"question"`
}

// SchemaVocabulary is the header set of one questionnaire layout.
type SchemaVocabulary struct {
	// ThresholdRatio is the share of Detection headers that must be present
	// for a header row to be classified as this layout.
	ThresholdRatio float64 `yaml:"thresholdRatio"`
	// Detection lists the headers counted during format detection. When
	// empty, the mapping headers are used.
	Detection []string        `yaml:"detection"`
	Mappings  []HeaderMapping `yaml:"mappings"`
}

// DetectionHeaders returns the headers used to score a header row.
func (s SchemaVocabulary) DetectionHeaders() []string {
	if len(s.Detection) > 0 {
		return s.Detection
	}
	headers := make([]string, 0, len(s.Mappings))
	for _, m := range s.Mappings {
		headers = append(headers, m.Header)
	}
	return headers
}

// RequiredField is the answer a response must carry to be analyzed.
type RequiredField struct {
	Question QuestionID `yaml:"question"`
	Header   string     `yaml:"header"`
	Message  string     `yaml:"message"`
}

// TextCategory is a keyword bucket for free-text answers.
type TextCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Vocabulary is the data that drives header resolution, value normalization
// and chart labelling.
type Vocabulary struct {
	Current              SchemaVocabulary `yaml:"current"`
	Legacy               SchemaVocabulary `yaml:"legacy"`
	RequiredField        RequiredField    `yaml:"requiredField"`
	OrdinalLabels        map[string]int   `yaml:"ordinalLabels"`
	BooleanTokens        map[string]bool  `yaml:"booleanTokens"`
	MultiSelectDelimiter string           `yaml:"multiSelectDelimiter"`
	LevelLabels          []string         `yaml:"levelLabels"`
	LevelColors          []string         `yaml:"levelColors"`
	ChoicePalette        []string         `yaml:"choicePalette"`
	CategoryPalette      []string         `yaml:"categoryPalette"`
	TextCategories       []TextCategory   `yaml:"textCategories"`
	OtherCategory        string           `yaml:"otherCategory"`
	SummaryQuestions     []QuestionID     `yaml:"summaryQuestions"`
}

// MappingsFor returns the header mappings to apply for a detected layout.
// An unknown layout tries the current mappings first, then the legacy ones.
func (v *Vocabulary) MappingsFor(version SchemaVersion) []HeaderMapping {
	switch version {
	case SchemaCurrent:
		return v.Current.Mappings
	case SchemaLegacy:
		return v.Legacy.Mappings
	}
	out := make([]HeaderMapping, 0, len(v.Current.Mappings)+len(v.Legacy.Mappings))
	out = append(out, v.Current.Mappings...)
	return append(out, v.Legacy.Mappings...)
}

var (
	defaultVocabulary     *Vocabulary
	defaultVocabularyErr  error
	defaultVocabularyOnce sync.Once
)

// DefaultVocabulary returns the built-in vocabulary. It panics if the
// embedded document is malformed, which only a broken build can cause.
func DefaultVocabulary() *Vocabulary {
	defaultVocabularyOnce.Do(func() {
		defaultVocabulary, defaultVocabularyErr = ParseVocabulary(defaultVocabularyYAML)
	})
	if defaultVocabularyErr != nil {
		panic(fmt.Sprintf("embedded vocabulary: %v", defaultVocabularyErr))
	}
	return defaultVocabulary
}

// LoadVocabulary reads a vocabulary override from disk.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary %s: %w", path, err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary decodes and checks a YAML vocabulary document.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// Validate checks that every mapping targets a known question and that the
// chart tables are complete.
func (v *Vocabulary) Validate() error {
	for name, schema := range map[string]SchemaVocabulary{"current": v.Current, "legacy": v.Legacy} {
		if len(schema.Mappings) == 0 {
			return fmt.Errorf("vocabulary: %s schema has no mappings", name)
		}
		if schema.ThresholdRatio <= 0 || schema.ThresholdRatio > 1 {
			return fmt.Errorf("vocabulary: %s threshold %v out of range", name, schema.ThresholdRatio)
		}
		for _, m := range schema.Mappings {
			if m.Header == "" {
				return fmt.Errorf("vocabulary: %s schema has an empty header", name)
			}
			if !m.Question.Known() {
				return fmt.Errorf("vocabulary: %s header %q maps to unknown question %q", name, m.Header, m.Question)
			}
		}
	}
	if !v.RequiredField.Question.Known() {
		return fmt.Errorf("vocabulary: unknown required question %q", v.RequiredField.Question)
	}
	for label, score := range v.OrdinalLabels {
		if score < 1 || score > 5 {
			return fmt.Errorf("vocabulary: ordinal label %q has score %d", label, score)
		}
	}
	if len(v.LevelLabels) != 5 || len(v.LevelColors) != 5 {
		return fmt.Errorf("vocabulary: level labels and colors need 5 entries")
	}
	if len(v.ChoicePalette) == 0 || len(v.CategoryPalette) == 0 {
		return fmt.Errorf("vocabulary: palettes must not be empty")
	}
	if v.MultiSelectDelimiter == "" {
		return fmt.Errorf("vocabulary: multi-select delimiter is empty")
	}
	if v.OtherCategory == "" {
		return fmt.Errorf("vocabulary: fallback category is empty")
	}
	for _, q := range v.SummaryQuestions {
		if !q.IsOrdinal() {
			return fmt.Errorf("vocabulary: summary question %q is not a satisfaction question", q)
		}
	}
	return nil
}
