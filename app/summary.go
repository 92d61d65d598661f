package app

import (
	"sort"

	"surveylens/domain/survey"
	"surveylens/internal/errors"
)

const highlightCategories = 3

// GradeDataQuality grades a corpus by its response count.
func GradeDataQuality(totalResponses int) survey.DataQuality {
	switch {
	case totalResponses >= 100:
		return survey.QualityExcellent
	case totalResponses >= 50:
		return survey.QualityGood
	case totalResponses >= 20:
		return survey.QualityFair
	}
	return survey.QualityPoor
}

// Summary grades the corpus and picks the best and worst scoring core
// questions. Questions without scores are left out of the ranking.
func (r *ProcessResult) Summary() (*survey.Summary, error) {
	if r.analyzer == nil {
		return nil, errors.NotAnalyzed()
	}
	stats := r.analyzer.BasicStats()

	var scores []survey.QuestionScore
	for _, q := range r.vocab.SummaryQuestions {
		d := r.analyzer.Distribution(string(q))
		if d.AverageScore > 0 {
			scores = append(scores, survey.QuestionScore{Question: string(q), Score: d.AverageScore})
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	highlights := survey.SummaryHighlights{
		TopConcerns:    r.topCategories(survey.QuestionConcerns),
		TopSuggestions: r.topCategories(survey.QuestionImprovementSuggestions),
	}
	if len(scores) > 0 {
		highest, lowest := scores[0], scores[len(scores)-1]
		highlights.HighestSatisfaction = &highest
		highlights.LowestSatisfaction = &lowest
	}

	return &survey.Summary{
		Overview: survey.SummaryOverview{
			TotalResponses: stats.TotalResponses,
			ValidResponses: stats.ValidResponses,
			CompletionRate: stats.CompletionRate,
			DataQuality:    GradeDataQuality(stats.TotalResponses),
		},
		Highlights:   highlights,
		Demographics: stats.Demographics,
	}, nil
}

// topCategories names the most frequent keyword categories of a free-text
// question, skipping the fallback category.
func (r *ProcessResult) topCategories(q survey.QuestionID) []string {
	names := []string{}
	for _, c := range r.analyzer.TextAnalysis(string(q)).CategoryData {
		if c.Name == r.vocab.OtherCategory {
			continue
		}
		names = append(names, c.Name)
		if len(names) == highlightCategories {
			break
		}
	}
	return names
}
