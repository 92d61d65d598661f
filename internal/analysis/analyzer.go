package analysis

import (
	"math"
	"sort"
	"strings"
	"time"

	"surveylens/domain/survey"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Analyzer computes distributions, tallies and text categories over a fixed
// response set. Empty and error-flagged responses are dropped at construction;
// every method is a pure read of the remaining set.
type Analyzer struct {
	vocab     *survey.Vocabulary
	responses []survey.Response
	total     int
	now       func() time.Time
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithClock sets the clock stamped into AnalysisMetadata.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer builds an analyzer over the usable subset of responses.
func NewAnalyzer(vocab *survey.Vocabulary, responses []survey.Response, opts ...Option) *Analyzer {
	usable := make([]survey.Response, 0, len(responses))
	for _, r := range responses {
		if r.Usable() {
			usable = append(usable, r)
		}
	}
	a := &Analyzer{vocab: vocab, responses: usable, total: len(responses), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Responses returns the usable responses the analyzer works on.
func (a *Analyzer) Responses() []survey.Response { return a.responses }

func (a *Analyzer) scores(questionID string) []float64 {
	var values []float64
	for _, r := range a.responses {
		answer, ok := r.Lookup(questionID)
		if !ok {
			continue
		}
		if score, ok := answer.OrdinalScore(); ok {
			values = append(values, float64(score))
		}
	}
	return values
}

// Distribution buckets the 1–5 scores of a question. Answers outside the
// scale are ignored; a question without scores yields five empty buckets.
func (a *Analyzer) Distribution(questionID string) survey.DistributionData {
	values := a.scores(questionID)

	counts := make([]int, 5)
	satisfied := 0
	for _, v := range values {
		counts[int(v)-1]++
		if v >= 4 {
			satisfied++
		}
	}

	buckets := make([]survey.ChartPoint, 5)
	for i := range buckets {
		buckets[i] = survey.ChartPoint{
			Name:  a.vocab.LevelLabels[i],
			Value: counts[i],
			Color: a.vocab.LevelColors[i],
		}
	}

	data := survey.DistributionData{Distribution: buckets, TotalResponses: len(values)}
	if len(values) == 0 {
		return data
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		std = 0
	}
	median, _ := stats.Median(values)
	data.AverageScore, _ = stats.Round(mean, 1)
	data.MedianScore = median
	data.StandardDeviation, _ = stats.Round(std, 2)
	data.SatisfactionRate = math.Round(float64(satisfied) / float64(len(values)) * 100)
	return data
}

type tally struct {
	name  string
	count int
}

// countOrdered counts values keeping first-seen order, then sorts by count
// descending. Ties keep their first-seen order.
func countOrdered(values []string) []tally {
	index := make(map[string]int)
	var tallies []tally
	for _, v := range values {
		if i, ok := index[v]; ok {
			tallies[i].count++
			continue
		}
		index[v] = len(tallies)
		tallies = append(tallies, tally{name: v, count: 1})
	}
	sort.SliceStable(tallies, func(i, j int) bool { return tallies[i].count > tallies[j].count })
	return tallies
}

// MultipleChoice tallies the distinct stringified answers of a question. A
// multi-select answer counts once as its joined option list, so the counts
// sum to TotalResponses.
func (a *Analyzer) MultipleChoice(questionID string) survey.MultipleChoiceData {
	var values []string
	for _, r := range a.responses {
		answer, ok := r.Lookup(questionID)
		if !ok {
			continue
		}
		if v := strings.TrimSpace(answer.String()); v != "" {
			values = append(values, v)
		}
	}

	points := []survey.ChartPoint{}
	for i, t := range countOrdered(values) {
		points = append(points, survey.ChartPoint{
			Name:  t.name,
			Value: t.count,
			Color: a.vocab.ChoicePalette[i%len(a.vocab.ChoicePalette)],
		})
	}
	return survey.MultipleChoiceData{MultipleChoiceData: points, TotalResponses: len(values)}
}

// Categorize returns the first category whose keywords occur in text, or the
// fallback category.
func (a *Analyzer) Categorize(text string) string {
	for _, c := range a.vocab.TextCategories {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(text, kw) {
				return c.Name
			}
		}
	}
	return a.vocab.OtherCategory
}

// TextAnalysis buckets free-text answers by keyword category. Categories
// without answers are omitted; representatives cover the top five.
func (a *Analyzer) TextAnalysis(questionID string) survey.TextAnalysisData {
	data := survey.TextAnalysisData{
		CategoryData:          []survey.ChartPoint{},
		RepresentativeAnswers: []survey.RepresentativeAnswer{},
	}

	order := make([]string, 0, len(a.vocab.TextCategories)+1)
	for _, c := range a.vocab.TextCategories {
		order = append(order, c.Name)
	}
	order = append(order, a.vocab.OtherCategory)

	buckets := make(map[string][]string, len(order))
	for _, r := range a.responses {
		answer, ok := r.Lookup(questionID)
		if !ok {
			continue
		}
		text := strings.TrimSpace(answer.String())
		if text == "" {
			continue
		}
		category := a.Categorize(text)
		buckets[category] = append(buckets[category], text)
		data.TotalResponses++
	}

	var ranked []tally
	for _, name := range order {
		if n := len(buckets[name]); n > 0 {
			ranked = append(ranked, tally{name: name, count: n})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })

	for i, t := range ranked {
		data.CategoryData = append(data.CategoryData, survey.ChartPoint{
			Name:  t.name,
			Value: t.count,
			Color: a.vocab.CategoryPalette[i%len(a.vocab.CategoryPalette)],
		})
		if i < 5 {
			data.RepresentativeAnswers = append(data.RepresentativeAnswers, survey.RepresentativeAnswer{
				Category: t.name,
				Count:    t.count,
				Example:  buckets[t.name][0],
			})
		}
	}
	return data
}

func segmentKey(r survey.Response, segment survey.QuestionID) (string, bool) {
	answer, ok := r.Answers[segment]
	if !ok {
		return "", false
	}
	key := strings.TrimSpace(answer.String())
	return key, key != ""
}

// Segments returns the sorted distinct values of a segmentation question.
func (a *Analyzer) Segments(segment survey.QuestionID) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range a.responses {
		if key, ok := segmentKey(r, segment); ok && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// SegmentedDistribution runs Distribution within each partition of the
// response set by the value of segment.
func (a *Analyzer) SegmentedDistribution(questionID string, segment survey.QuestionID) map[string]survey.DistributionData {
	partitions := make(map[string][]survey.Response)
	for _, r := range a.responses {
		if key, ok := segmentKey(r, segment); ok {
			partitions[key] = append(partitions[key], r)
		}
	}
	result := make(map[string]survey.DistributionData, len(partitions))
	for key, rs := range partitions {
		sub := &Analyzer{vocab: a.vocab, responses: rs, total: len(rs), now: a.now}
		result[key] = sub.Distribution(questionID)
	}
	return result
}

// AnalyzeByJobType is the distribution of questionID per job type.
func (a *Analyzer) AnalyzeByJobType(questionID string) map[string]survey.DistributionData {
	return a.SegmentedDistribution(questionID, survey.QuestionJobType)
}

// AnalyzeByAge is the distribution of questionID per age band.
func (a *Analyzer) AnalyzeByAge(questionID string) map[string]survey.DistributionData {
	return a.SegmentedDistribution(questionID, survey.QuestionAge)
}

func (a *Analyzer) countValues(questionID survey.QuestionID) map[string]int {
	counts := make(map[string]int)
	for _, r := range a.responses {
		answer, ok := r.Answers[questionID]
		if !ok {
			continue
		}
		if v := strings.TrimSpace(answer.String()); v != "" {
			counts[v]++
		}
	}
	return counts
}

// BasicStats reports corpus counts. TotalResponses includes the responses
// dropped at construction.
func (a *Analyzer) BasicStats() survey.BasicStats {
	s := survey.BasicStats{
		TotalResponses: a.total,
		ValidResponses: len(a.responses),
		CompanyCounts:  a.countValues(survey.QuestionCompanyName),
		JobTypeCounts:  a.countValues(survey.QuestionJobType),
		Demographics: survey.Demographics{
			Gender: a.countValues(survey.QuestionGender),
			Age:    a.countValues(survey.QuestionAge),
			Tenure: a.countValues(survey.QuestionTenure),
		},
	}
	if a.total > 0 {
		s.CompletionRate = math.Round(float64(s.ValidResponses) / float64(a.total) * 100)
	}
	return s
}

func (a *Analyzer) hasAnswers(q survey.QuestionID) bool {
	for _, r := range a.responses {
		if _, ok := r.Answers[q]; ok {
			return true
		}
	}
	return false
}

// GenerateAll runs the standard analysis for every known question that has
// at least one answer: distributions, then choice tallies, then text.
func (a *Analyzer) GenerateAll() []survey.AnalysisResult {
	processedAt := a.now().UTC().Format(survey.TimestampLayout)
	results := []survey.AnalysisResult{}

	emit := func(q survey.QuestionID, kind survey.AnalysisType, data any, total int) {
		results = append(results, survey.AnalysisResult{
			QuestionID:   string(q),
			AnalysisType: kind,
			Data:         data,
			Metadata: survey.AnalysisMetadata{
				TotalResponses: total,
				ValidResponses: total,
				ProcessedAt:    processedAt,
			},
		})
	}

	for _, q := range survey.SatisfactionQuestions {
		if a.hasAnswers(q) {
			d := a.Distribution(string(q))
			emit(q, survey.AnalysisDistribution, d, d.TotalResponses)
		}
	}
	for _, q := range survey.ChoiceQuestions {
		if a.hasAnswers(q) {
			d := a.MultipleChoice(string(q))
			emit(q, survey.AnalysisMultipleChoice, d, d.TotalResponses)
		}
	}
	for _, q := range survey.TextQuestions {
		if a.hasAnswers(q) {
			d := a.TextAnalysis(string(q))
			emit(q, survey.AnalysisText, d, d.TotalResponses)
		}
	}
	return results
}

// Analyze runs one analysis kind for a question. Segmented kinds return a
// map keyed by segment value; ok is false for unknown kinds.
func (a *Analyzer) Analyze(questionID string, kind survey.AnalysisType) (any, bool) {
	switch kind {
	case survey.AnalysisDistribution:
		return a.Distribution(questionID), true
	case survey.AnalysisMultipleChoice:
		return a.MultipleChoice(questionID), true
	case survey.AnalysisText:
		return a.TextAnalysis(questionID), true
	case survey.AnalysisJobType:
		return a.AnalyzeByJobType(questionID), true
	case survey.AnalysisDemographic:
		return a.AnalyzeByAge(questionID), true
	}
	return nil, false
}
