package analysis

import (
	"math"
	"testing"
	"time"

	"surveylens/domain/survey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC) }

func response(row int, answers map[survey.QuestionID]survey.Answer) survey.Response {
	return survey.Response{
		RowNumber: row,
		Answers:   answers,
		Unmapped:  map[string]survey.Answer{},
		Metadata:  survey.ResponseMetadata{ErrorMessages: []string{}},
	}
}

func scored(q survey.QuestionID, scores ...int) []survey.Response {
	responses := make([]survey.Response, len(scores))
	for i, s := range scores {
		responses[i] = response(i+2, map[survey.QuestionID]survey.Answer{
			survey.QuestionCompanyName: survey.TextAnswer("A社"),
			q:                          survey.OrdinalAnswer(s, false),
		})
	}
	return responses
}

func newAnalyzer(responses []survey.Response) *Analyzer {
	return NewAnalyzer(survey.DefaultVocabulary(), responses, WithClock(fixedNow))
}

func bucketValues(d survey.DistributionData) []int {
	values := make([]int, len(d.Distribution))
	for i, p := range d.Distribution {
		values[i] = p.Value
	}
	return values
}

func TestDistribution(t *testing.T) {
	a := newAnalyzer(scored(survey.QuestionWorkEnvironment, 2, 3, 4, 4, 5))

	d := a.Distribution(string(survey.QuestionWorkEnvironment))

	assert.Equal(t, 5, d.TotalResponses)
	assert.Equal(t, 3.6, d.AverageScore)
	assert.Equal(t, 60.0, d.SatisfactionRate)
	assert.Equal(t, 4.0, d.MedianScore)
	assert.InDelta(t, 1.14, d.StandardDeviation, 1e-9)
	assert.Equal(t, []int{0, 1, 1, 2, 1}, bucketValues(d))

	require.Len(t, d.Distribution, 5)
	assert.Equal(t, "非常に不満", d.Distribution[0].Name)
	assert.Equal(t, "#ef4444", d.Distribution[0].Color)
	assert.Equal(t, "非常に満足", d.Distribution[4].Name)
	assert.Equal(t, "#22c55e", d.Distribution[4].Color)
}

func TestDistributionProperties(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
	}{
		{"all levels", []int{1, 2, 3, 4, 5}},
		{"skewed high", []int{5, 5, 5, 4, 1, 3}},
		{"single", []int{2}},
		{"uniform", []int{3, 3, 3, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newAnalyzer(scored(survey.QuestionCompensation, tt.scores...)).
				Distribution(string(survey.QuestionCompensation))

			sum, high := 0, 0
			for _, v := range bucketValues(d) {
				sum += v
			}
			total := 0
			for _, s := range tt.scores {
				total += s
				if s >= 4 {
					high++
				}
			}
			assert.Equal(t, d.TotalResponses, sum)
			mean := float64(total) / float64(len(tt.scores))
			assert.Equal(t, math.Round(mean*10)/10, d.AverageScore)
			assert.InDelta(t, 100*float64(high)/float64(len(tt.scores)), d.SatisfactionRate, 0.5)
		})
	}
}

func TestDistributionEmptyAndOutOfRange(t *testing.T) {
	responses := []survey.Response{
		response(2, map[survey.QuestionID]survey.Answer{
			survey.QuestionCompanyName: survey.TextAnswer("A社"),
			survey.QuestionAutonomy:    survey.NumberAnswer(7),
		}),
		response(3, map[survey.QuestionID]survey.Answer{
			survey.QuestionCompanyName: survey.TextAnswer("A社"),
			survey.QuestionAutonomy:    survey.TextAnswer("満足"),
		}),
	}
	a := newAnalyzer(responses)

	for _, q := range []survey.QuestionID{survey.QuestionAutonomy, survey.QuestionBenefits} {
		d := a.Distribution(string(q))
		assert.Equal(t, 0, d.TotalResponses)
		assert.Equal(t, []int{0, 0, 0, 0, 0}, bucketValues(d))
		assert.Zero(t, d.AverageScore)
		assert.Zero(t, d.SatisfactionRate)
	}
}

func TestEmptyAndErrorRowsExcluded(t *testing.T) {
	responses := scored(survey.QuestionWorkEnvironment, 4, 2)
	empty := response(10, map[survey.QuestionID]survey.Answer{})
	empty.Metadata.IsEmpty = true
	flagged := response(11, map[survey.QuestionID]survey.Answer{
		survey.QuestionWorkEnvironment: survey.OrdinalAnswer(5, false),
	})
	flagged.Metadata.HasErrors = true
	flagged.Metadata.ErrorMessages = []string{"会社名が入力されていません"}
	responses = append(responses, empty, flagged)

	a := newAnalyzer(responses)

	assert.Len(t, a.Responses(), 2)
	d := a.Distribution(string(survey.QuestionWorkEnvironment))
	assert.Equal(t, 2, d.TotalResponses)
	assert.Equal(t, 3.0, d.AverageScore)

	stats := a.BasicStats()
	assert.Equal(t, 4, stats.TotalResponses)
	assert.Equal(t, 2, stats.ValidResponses)
	assert.Equal(t, 50.0, stats.CompletionRate)
}

func TestMultipleChoice(t *testing.T) {
	jobs := []string{"営業", "事務", "技術", "事務", "営業", "製造"}
	responses := make([]survey.Response, 0, len(jobs)+1)
	for i, j := range jobs {
		responses = append(responses, response(i+2, map[survey.QuestionID]survey.Answer{
			survey.QuestionCompanyName: survey.TextAnswer("A社"),
			survey.QuestionJobType:     survey.TextAnswer(j),
		}))
	}
	responses = append(responses, response(9, map[survey.QuestionID]survey.Answer{
		survey.QuestionCompanyName: survey.TextAnswer("A社"),
	}))

	d := newAnalyzer(responses).MultipleChoice(string(survey.QuestionJobType))

	assert.Equal(t, 6, d.TotalResponses)
	names := make([]string, len(d.MultipleChoiceData))
	sum := 0
	for i, p := range d.MultipleChoiceData {
		names[i] = p.Name
		sum += p.Value
	}
	assert.Equal(t, []string{"営業", "事務", "技術", "製造"}, names)
	assert.Equal(t, 6, sum)
	assert.Equal(t, "#3b82f6", d.MultipleChoiceData[0].Color)
}

func TestMultipleChoicePaletteCycles(t *testing.T) {
	var responses []survey.Response
	for i := 0; i < 9; i++ {
		responses = append(responses, response(i+2, map[survey.QuestionID]survey.Answer{
			survey.QuestionCompanyName: survey.TextAnswer(string(rune('A'+i)) + "社"),
		}))
	}

	d := newAnalyzer(responses).MultipleChoice(string(survey.QuestionCompanyName))

	require.Len(t, d.MultipleChoiceData, 9)
	assert.Equal(t, d.MultipleChoiceData[0].Color, d.MultipleChoiceData[7].Color)
	assert.Equal(t, d.MultipleChoiceData[1].Color, d.MultipleChoiceData[8].Color)
	assert.Equal(t, "A社", d.MultipleChoiceData[0].Name)
}

func TestMultipleChoiceMultiSelect(t *testing.T) {
	answers := [][]string{{"給与", "勤務地"}, {"勤務地"}, {"給与", "勤務地"}, nil}
	responses := make([]survey.Response, len(answers))
	for i, opts := range answers {
		responses[i] = response(i+2, map[survey.QuestionID]survey.Answer{
			survey.QuestionCompanyName:   survey.TextAnswer("A社"),
			survey.QuestionHiringReasons: survey.OptionsAnswer(opts),
		})
	}

	d := newAnalyzer(responses).MultipleChoice(string(survey.QuestionHiringReasons))

	assert.Equal(t, 3, d.TotalResponses)
	require.Len(t, d.MultipleChoiceData, 2)
	assert.Equal(t, survey.ChartPoint{Name: "給与,勤務地", Value: 2, Color: "#3b82f6"}, d.MultipleChoiceData[0])
	assert.Equal(t, survey.ChartPoint{Name: "勤務地", Value: 1, Color: "#10b981"}, d.MultipleChoiceData[1])

	sum := 0
	for _, p := range d.MultipleChoiceData {
		sum += p.Value
	}
	assert.Equal(t, d.TotalResponses, sum)
}

func textResponses(q survey.QuestionID, texts ...string) []survey.Response {
	responses := make([]survey.Response, len(texts))
	for i, text := range texts {
		responses[i] = response(i+2, map[survey.QuestionID]survey.Answer{
			survey.QuestionCompanyName: survey.TextAnswer("A社"),
			q:                          survey.TextAnswer(text),
		})
	}
	return responses
}

func TestCategorize(t *testing.T) {
	a := newAnalyzer(nil)

	tests := []struct {
		text string
		want string
	}{
		{"残業時間が多い", "労働環境・職場"},
		{"給与が低い", "待遇・給与"},
		{"特になし", "その他"},
		{"上司とのコミュニケーション", "人間関係・コミュニケーション"},
		{"研修を増やしてほしい", "業務内容・スキル"},
		{"会社の将来が不安", "経営・組織"},
		{"職場の給与体系", "労働環境・職場"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Categorize(tt.text))
		})
	}
}

func TestTextAnalysis(t *testing.T) {
	a := newAnalyzer(textResponses(survey.QuestionConcerns,
		"残業時間が多い", "給与が低い", "特になし", "  ", "賞与を上げてほしい", "有給が取りにくい", "給与体系が不透明"))

	d := a.TextAnalysis(string(survey.QuestionConcerns))

	assert.Equal(t, 6, d.TotalResponses)
	assert.Equal(t, []survey.ChartPoint{
		{Name: "待遇・給与", Value: 3, Color: "#3b82f6"},
		{Name: "労働環境・職場", Value: 2, Color: "#10b981"},
		{Name: "その他", Value: 1, Color: "#f59e0b"},
	}, d.CategoryData)
	assert.Equal(t, []survey.RepresentativeAnswer{
		{Category: "待遇・給与", Count: 3, Example: "給与が低い"},
		{Category: "労働環境・職場", Count: 2, Example: "残業時間が多い"},
		{Category: "その他", Count: 1, Example: "特になし"},
	}, d.RepresentativeAnswers)
}

func TestTextAnalysisTopFiveRepresentatives(t *testing.T) {
	a := newAnalyzer(textResponses(survey.QuestionImprovementSuggestions,
		"職場", "給与", "上司", "研修", "経営", "なし"))

	d := a.TextAnalysis(string(survey.QuestionImprovementSuggestions))

	assert.Len(t, d.CategoryData, 6)
	assert.Len(t, d.RepresentativeAnswers, 5)
	assert.Equal(t, "その他", d.CategoryData[5].Name)
	assert.Equal(t, "#3b82f6", d.CategoryData[5].Color)
}

func TestTextAnalysisEmpty(t *testing.T) {
	d := newAnalyzer(nil).TextAnalysis(string(survey.QuestionConcerns))

	assert.Zero(t, d.TotalResponses)
	assert.Empty(t, d.CategoryData)
	assert.NotNil(t, d.CategoryData)
	assert.NotNil(t, d.RepresentativeAnswers)
}

func segmented() []survey.Response {
	rows := []struct {
		job, age string
		score    int
	}{
		{"営業", "20代", 5},
		{"営業", "30代", 4},
		{"事務", "20代", 2},
		{"事務", "", 3},
		{"", "40代", 1},
	}
	responses := make([]survey.Response, len(rows))
	for i, r := range rows {
		answers := map[survey.QuestionID]survey.Answer{
			survey.QuestionCompanyName:     survey.TextAnswer("A社"),
			survey.QuestionWorkEnvironment: survey.OrdinalAnswer(r.score, false),
		}
		if r.job != "" {
			answers[survey.QuestionJobType] = survey.TextAnswer(r.job)
		}
		if r.age != "" {
			answers[survey.QuestionAge] = survey.TextAnswer(r.age)
		}
		responses[i] = response(i+2, answers)
	}
	return responses
}

func TestAnalyzeByJobType(t *testing.T) {
	a := newAnalyzer(segmented())

	result := a.AnalyzeByJobType(string(survey.QuestionWorkEnvironment))

	require.Len(t, result, 2)
	assert.Equal(t, 2, result["営業"].TotalResponses)
	assert.Equal(t, 4.5, result["営業"].AverageScore)
	assert.Equal(t, 100.0, result["営業"].SatisfactionRate)
	assert.Equal(t, 2.5, result["事務"].AverageScore)
	assert.Equal(t, []string{"事務", "営業"}, a.Segments(survey.QuestionJobType))
}

func TestAnalyzeByAge(t *testing.T) {
	a := newAnalyzer(segmented())

	result := a.AnalyzeByAge(string(survey.QuestionWorkEnvironment))

	require.Len(t, result, 3)
	assert.Equal(t, 3.5, result["20代"].AverageScore)
	assert.Equal(t, 1, result["30代"].TotalResponses)
	assert.Equal(t, 0.0, result["40代"].SatisfactionRate)
}

func TestBasicStats(t *testing.T) {
	responses := segmented()
	responses[0].Answers[survey.QuestionGender] = survey.TextAnswer("女性")
	responses[1].Answers[survey.QuestionGender] = survey.TextAnswer("男性")
	responses[2].Answers[survey.QuestionGender] = survey.TextAnswer("女性")
	responses[3].Answers[survey.QuestionTenure] = survey.TextAnswer("3年未満")
	responses[4].Answers[survey.QuestionCompanyName] = survey.TextAnswer("B社")

	s := newAnalyzer(responses).BasicStats()

	assert.Equal(t, 5, s.TotalResponses)
	assert.Equal(t, 5, s.ValidResponses)
	assert.Equal(t, 100.0, s.CompletionRate)
	assert.Equal(t, map[string]int{"A社": 4, "B社": 1}, s.CompanyCounts)
	assert.Equal(t, map[string]int{"営業": 2, "事務": 2}, s.JobTypeCounts)
	assert.Equal(t, map[string]int{"女性": 2, "男性": 1}, s.Demographics.Gender)
	assert.Equal(t, map[string]int{"20代": 2, "30代": 1, "40代": 1}, s.Demographics.Age)
	assert.Equal(t, map[string]int{"3年未満": 1}, s.Demographics.Tenure)
}

func TestBasicStatsEmpty(t *testing.T) {
	s := newAnalyzer(nil).BasicStats()

	assert.Zero(t, s.TotalResponses)
	assert.Zero(t, s.CompletionRate)
	assert.NotNil(t, s.CompanyCounts)
}

func TestGenerateAll(t *testing.T) {
	responses := segmented()
	responses[0].Answers[survey.QuestionConcerns] = survey.TextAnswer("給与が低い")
	responses[1].Answers[survey.QuestionOverallSatisfaction] = survey.OrdinalAnswer(4, false)

	results := newAnalyzer(responses).GenerateAll()

	type key struct {
		id   string
		kind survey.AnalysisType
	}
	var keys []key
	for _, r := range results {
		keys = append(keys, key{r.QuestionID, r.AnalysisType})
		assert.Equal(t, "2024-04-01T09:00:00.000Z", r.Metadata.ProcessedAt)
	}
	assert.Equal(t, []key{
		{"work_environment", survey.AnalysisDistribution},
		{"overall_satisfaction", survey.AnalysisDistribution},
		{"company_name", survey.AnalysisMultipleChoice},
		{"job_type", survey.AnalysisMultipleChoice},
		{"age", survey.AnalysisMultipleChoice},
		{"concerns", survey.AnalysisText},
	}, keys)

	dist, ok := results[0].Data.(survey.DistributionData)
	require.True(t, ok)
	assert.Equal(t, 5, dist.TotalResponses)
	assert.Equal(t, 5, results[0].Metadata.TotalResponses)
	assert.Equal(t, 1, results[1].Metadata.ValidResponses)
}

func TestGenerateAllEmpty(t *testing.T) {
	results := newAnalyzer(nil).GenerateAll()

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestAnalyze(t *testing.T) {
	a := newAnalyzer(segmented())
	q := string(survey.QuestionWorkEnvironment)

	tests := []struct {
		kind survey.AnalysisType
		want any
	}{
		{survey.AnalysisDistribution, a.Distribution(q)},
		{survey.AnalysisMultipleChoice, a.MultipleChoice(q)},
		{survey.AnalysisText, a.TextAnalysis(q)},
		{survey.AnalysisJobType, a.AnalyzeByJobType(q)},
		{survey.AnalysisDemographic, a.AnalyzeByAge(q)},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, ok := a.Analyze(q, tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := a.Analyze(q, "correlation")
	assert.False(t, ok)
}
