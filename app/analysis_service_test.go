package app

import (
	"strings"
	"testing"
	"time"

	"surveylens/domain/survey"
	"surveylens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC) }

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func newService(t *testing.T) *AnalysisService {
	return NewAnalysisService(survey.DefaultVocabulary(), tokyo(t), WithClock(fixedNow))
}

// legacyCSV has three usable rows, one empty row and one row without a
// company name.
func legacyCSV() []byte {
	lines := []string{
		"タイムスタンプ,会社名,職種,性別,年代,勤続年数,職場環境への満足度,ワークライフバランス,総合満足度,改善提案・要望,不安・懸念事項",
		"2024/04/01 09:00,A社,営業,女性,20代,3年未満,4,5,4,研修を増やしてほしい,給与が低い",
		"2024/04/02 10:00,A社,事務,男性,30代,5年以上,2,3,3,,残業時間が多い",
		"2024/04/03 11:00,B社,営業,女性,20代,3年未満,満足,非常に満足,5,上司との面談,給与が上がらない",
		",,,,,,,,,,",
		"2024/04/05 12:00,,技術,男性,40代,10年以上,1,2,2,,",
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestProcessFile(t *testing.T) {
	result := newService(t).ProcessFile(legacyCSV(), survey.ParseOptions{FileName: "2023.csv"})

	require.True(t, result.Success)
	require.NotNil(t, result.ParseResult)
	assert.Equal(t, survey.SchemaLegacy, result.ParseResult.Metadata.Format.Schema)
	assert.Len(t, result.ParseResult.Data, 5)

	assert.False(t, result.Validation.IsValid)
	assert.Equal(t, []string{"6行目: 会社名が入力されていません"}, result.ParseResult.Errors)
	assert.Equal(t, []string{"1件の空の回答があります"}, result.ParseResult.Warnings)

	assert.Equal(t, 5, result.BasicStats.TotalResponses)
	assert.Equal(t, 3, result.BasicStats.ValidResponses)
	assert.Equal(t, 60.0, result.BasicStats.CompletionRate)
	assert.Equal(t, map[string]int{"A社": 2, "B社": 1}, result.BasicStats.CompanyCounts)
	assert.Len(t, result.Responses(), 3)

	var ids []string
	for _, a := range result.AnalysisData {
		ids = append(ids, a.QuestionID+"/"+string(a.AnalysisType))
	}
	assert.Equal(t, []string{
		"work_environment/distribution",
		"work_life_balance/distribution",
		"overall_satisfaction/distribution",
		"company_name/multipleChoice",
		"job_type/multipleChoice",
		"gender/multipleChoice",
		"age/multipleChoice",
		"tenure/multipleChoice",
		"improvement_suggestions/textAnalysis",
		"concerns/textAnalysis",
	}, ids)

	dist := result.AnalysisData[0].Data.(survey.DistributionData)
	assert.Equal(t, 3, dist.TotalResponses)
	assert.Equal(t, 3.3, dist.AverageScore)
	assert.Equal(t, 67.0, dist.SatisfactionRate)
}

func TestProcessFileParseFailure(t *testing.T) {
	result := newService(t).ProcessFile(nil, survey.ParseOptions{})

	assert.False(t, result.Success)
	assert.Equal(t, "Excelファイルの解析に失敗しました", result.Error)
	assert.Equal(t, []string{"データが見つかりません"}, result.ParseResult.Errors)
	assert.Nil(t, result.AnalysisData)
	assert.Nil(t, result.Responses())

	_, err := result.QuestionAnalysis("work_environment", survey.AnalysisDistribution)
	assert.Equal(t, errors.CodeNotAnalyzed, errors.GetCode(err))
	_, err = result.Summary()
	assert.Equal(t, errors.CodeNotAnalyzed, errors.GetCode(err))
}

func TestQuestionAnalysis(t *testing.T) {
	result := newService(t).ProcessFile(legacyCSV(), survey.ParseOptions{})
	require.True(t, result.Success)

	t.Run("distribution", func(t *testing.T) {
		got, err := result.QuestionAnalysis("overall_satisfaction", survey.AnalysisDistribution)
		require.NoError(t, err)
		d := got.Data.(survey.DistributionData)
		assert.Equal(t, 4.0, d.AverageScore)
		assert.Equal(t, 3, got.Metadata.ValidResponses)
		assert.Equal(t, "2024-04-10T00:00:00.000Z", got.Metadata.ProcessedAt)
	})

	t.Run("job type", func(t *testing.T) {
		got, err := result.QuestionAnalysis("work_environment", survey.AnalysisJobType)
		require.NoError(t, err)
		segments := got.Data.(map[string]survey.DistributionData)
		require.Len(t, segments, 2)
		assert.Equal(t, 4.0, segments["営業"].AverageScore)
		assert.Equal(t, 2.0, segments["事務"].AverageScore)
		assert.Equal(t, 3, got.Metadata.ValidResponses)
	})

	t.Run("demographic", func(t *testing.T) {
		got, err := result.QuestionAnalysis("work_life_balance", survey.AnalysisDemographic)
		require.NoError(t, err)
		segments := got.Data.(map[string]survey.DistributionData)
		assert.Equal(t, 5.0, segments["20代"].AverageScore)
		assert.Equal(t, 3.0, segments["30代"].AverageScore)
	})

	t.Run("text", func(t *testing.T) {
		got, err := result.QuestionAnalysis("concerns", survey.AnalysisText)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Data.(survey.TextAnalysisData).TotalResponses)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := result.QuestionAnalysis("work_environment", "correlation")
		require.Error(t, err)
		assert.Equal(t, errors.CodeUnsupportedAnalysis, errors.GetCode(err))
		assert.Contains(t, err.Error(), "correlation")
	})
}

func TestSummary(t *testing.T) {
	result := newService(t).ProcessFile(legacyCSV(), survey.ParseOptions{})
	require.True(t, result.Success)

	summary, err := result.Summary()
	require.NoError(t, err)

	assert.Equal(t, survey.SummaryOverview{
		TotalResponses: 5,
		ValidResponses: 3,
		CompletionRate: 60,
		DataQuality:    survey.QualityPoor,
	}, summary.Overview)
	assert.Equal(t, &survey.QuestionScore{Question: "work_life_balance", Score: 4.3}, summary.Highlights.HighestSatisfaction)
	assert.Equal(t, &survey.QuestionScore{Question: "work_environment", Score: 3.3}, summary.Highlights.LowestSatisfaction)
	assert.Equal(t, []string{"待遇・給与", "労働環境・職場"}, summary.Highlights.TopConcerns)
	assert.Equal(t, []string{"人間関係・コミュニケーション", "業務内容・スキル"}, summary.Highlights.TopSuggestions)
	assert.Equal(t, map[string]int{"女性": 2, "男性": 1}, summary.Demographics.Gender)
}

func TestSummaryWithoutScores(t *testing.T) {
	csv := "会社名,職種\nA社,営業\n"
	result := newService(t).ProcessFile([]byte(csv), survey.ParseOptions{})
	require.True(t, result.Success)

	summary, err := result.Summary()
	require.NoError(t, err)
	assert.Nil(t, summary.Highlights.HighestSatisfaction)
	assert.Nil(t, summary.Highlights.LowestSatisfaction)
	assert.Empty(t, summary.Highlights.TopConcerns)
}

func TestGradeDataQuality(t *testing.T) {
	tests := []struct {
		total int
		want  survey.DataQuality
	}{
		{150, survey.QualityExcellent},
		{100, survey.QualityExcellent},
		{99, survey.QualityGood},
		{50, survey.QualityGood},
		{49, survey.QualityFair},
		{20, survey.QualityFair},
		{19, survey.QualityPoor},
		{0, survey.QualityPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeDataQuality(tt.total), "total=%d", tt.total)
	}
}

func TestAnalyzeFile(t *testing.T) {
	svc := newService(t)

	report, err := svc.AnalyzeFile(legacyCSV(), survey.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 10, len(report.AnalysisData))
	assert.Equal(t, survey.QualityPoor, report.Summary.Overview.DataQuality)
	assert.False(t, report.Validation.IsValid)

	_, err = svc.AnalyzeFile([]byte{}, survey.ParseOptions{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeParseFailed, errors.GetCode(err))
	assert.Equal(t, "データが見つかりません", errors.UserMessage(err))
}

func TestDetectFormat(t *testing.T) {
	svc := newService(t)

	result := svc.DetectFormat([]string{"Date", "Company", "Type"})
	assert.Equal(t, survey.SchemaUnknown, result.Schema)

	format, err := svc.DetectFileFormat(legacyCSV(), survey.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, survey.SchemaLegacy, format.Schema)
	assert.Equal(t, 1.0, format.Confidence)

	_, err = svc.DetectFileFormat(nil, survey.ParseOptions{})
	assert.Equal(t, errors.CodeParseFailed, errors.GetCode(err))
}
