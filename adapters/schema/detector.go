package schema

import (
	"math"
	"sort"
	"strings"

	"surveylens/adapters/normalize"
	"surveylens/domain/survey"
)

// Detector scores header rows against the known questionnaire layouts and
// resolves headers to canonical questions.
type Detector struct {
	vocab *survey.Vocabulary
}

// NewDetector creates a detector over vocab.
func NewDetector(vocab *survey.Vocabulary) *Detector {
	return &Detector{vocab: vocab}
}

type layoutScore struct {
	version survey.SchemaVersion
	headers []string
	known   map[string]bool
	matched []string
	missing []string
	ratio   float64
}

func score(version survey.SchemaVersion, headers []string, present map[string]bool) layoutScore {
	s := layoutScore{
		version: version,
		headers: headers,
		known:   make(map[string]bool, len(headers)),
		matched: []string{},
		missing: []string{},
	}
	for _, h := range headers {
		folded := normalize.Fold(h)
		s.known[folded] = true
		if present[folded] {
			s.matched = append(s.matched, h)
		} else {
			s.missing = append(s.missing, h)
		}
	}
	if len(headers) > 0 {
		s.ratio = float64(len(s.matched)) / float64(len(headers))
	}
	return s
}

// DetectFormat classifies a header row. Blank headers are ignored and the
// result does not depend on header order.
func (d *Detector) DetectFormat(headers []string) survey.FormatDetectionResult {
	present := make(map[string]bool, len(headers))
	var given []string
	for _, h := range headers {
		folded := normalize.Fold(h)
		if folded == "" || present[folded] {
			continue
		}
		present[folded] = true
		given = append(given, strings.TrimSpace(h))
	}

	current := score(survey.SchemaCurrent, d.vocab.Current.DetectionHeaders(), present)
	legacy := score(survey.SchemaLegacy, d.vocab.Legacy.DetectionHeaders(), present)

	chosen := current
	version := survey.SchemaUnknown
	switch {
	case current.ratio > d.vocab.Current.ThresholdRatio:
		version = survey.SchemaCurrent
	case legacy.ratio > d.vocab.Legacy.ThresholdRatio:
		chosen = legacy
		version = survey.SchemaLegacy
	case legacy.ratio > current.ratio:
		chosen = legacy
	}

	extra := []string{}
	for _, h := range given {
		if !chosen.known[normalize.Fold(h)] {
			extra = append(extra, h)
		}
	}
	sort.Strings(extra)

	return survey.FormatDetectionResult{
		Schema:         version,
		Confidence:     math.Round(chosen.ratio*100) / 100,
		MatchedHeaders: chosen.matched,
		MissingHeaders: chosen.missing,
		ExtraHeaders:   extra,
	}
}

// ResolveHeader maps a header to a canonical question using the mappings of
// version: an exact match first, then a substring match in either direction.
func (d *Detector) ResolveHeader(header string, version survey.SchemaVersion) (survey.QuestionID, bool) {
	folded := normalize.Fold(header)
	if folded == "" {
		return "", false
	}
	mappings := d.vocab.MappingsFor(version)
	for _, m := range mappings {
		if normalize.Fold(m.Header) == folded {
			return m.Question, true
		}
	}
	for _, m := range mappings {
		key := normalize.Fold(m.Header)
		if key == "" {
			continue
		}
		if strings.Contains(folded, key) || strings.Contains(key, folded) {
			return m.Question, true
		}
	}
	return "", false
}
