package validation

import (
	"fmt"

	"surveylens/domain/survey"
)

// MinReliableResponses is the non-empty response count below which a
// low-sample suggestion is emitted.
const MinReliableResponses = 10

const (
	msgEmptyRowsSuggestion = "空の行を削除することを検討してください"
	msgLowSample           = "回答数が少ないため、統計的な分析の信頼性が低い可能性があります"
	msgNoSatisfaction      = "満足度の設問に対する回答が見つかりません"
	msgNoSatisfactionHint  = "列名がアンケートの設問と一致しているか確認してください"
	msgDefaultedHint       = "認識できない値は中間値（3）または「いいえ」として扱われています。元データの表記を確認してください"
)

// Validator aggregates structural checks over parsed responses.
type Validator struct {
	required survey.RequiredField
}

// NewValidator creates a validator for the vocabulary's required field.
func NewValidator(vocab *survey.Vocabulary) *Validator {
	return &Validator{required: vocab.RequiredField}
}

// Validate inspects responses and columns without modifying them. The
// result is advisory; callers continue with analysis either way.
func (v *Validator) Validate(responses []survey.Response, columns []survey.ColumnInfo) survey.ValidationResult {
	result := survey.ValidationResult{
		Errors:      []survey.ValidationError{},
		Warnings:    []survey.ValidationWarning{},
		Suggestions: []string{},
	}

	var emptyRows, ordinalRows []int
	nonEmpty := 0
	for _, r := range responses {
		if r.Metadata.IsEmpty {
			emptyRows = append(emptyRows, r.RowNumber)
			continue
		}
		nonEmpty++
		if v.missingRequired(r) {
			result.Errors = append(result.Errors, survey.ValidationError{
				Row:      r.RowNumber,
				Column:   v.required.Header,
				Message:  v.required.Message,
				Severity: survey.SeverityError,
			})
		}
		if hasOrdinal(r) {
			ordinalRows = append(ordinalRows, r.RowNumber)
		}
	}

	if len(emptyRows) > 0 {
		result.Warnings = append(result.Warnings, survey.ValidationWarning{
			Message:      fmt.Sprintf("%d件の空の回答があります", len(emptyRows)),
			AffectedRows: emptyRows,
			Suggestion:   msgEmptyRowsSuggestion,
		})
	}

	if nonEmpty > 0 && len(ordinalRows) == 0 {
		result.Warnings = append(result.Warnings, survey.ValidationWarning{
			Message:      msgNoSatisfaction,
			AffectedRows: []int{},
			Suggestion:   msgNoSatisfactionHint,
		})
	}

	if w, ok := defaultedWarning(responses, columns); ok {
		result.Warnings = append(result.Warnings, w)
	}

	if nonEmpty < MinReliableResponses {
		result.Suggestions = append(result.Suggestions, msgLowSample)
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

func (v *Validator) missingRequired(r survey.Response) bool {
	if _, ok := r.Lookup(string(v.required.Question)); ok {
		return false
	}
	_, ok := r.Lookup(v.required.Header)
	return !ok
}

func hasOrdinal(r survey.Response) bool {
	for id, a := range r.Answers {
		if _, ok := a.OrdinalScore(); ok && id.IsOrdinal() {
			return true
		}
	}
	return false
}

// defaultedWarning reports cells whose value came from a fallback rule.
func defaultedWarning(responses []survey.Response, columns []survey.ColumnInfo) (survey.ValidationWarning, bool) {
	total := 0
	for _, c := range columns {
		total += c.DefaultedCount
	}
	if total == 0 {
		return survey.ValidationWarning{}, false
	}

	var rows []int
	for _, r := range responses {
		if rowHasDefault(r) {
			rows = append(rows, r.RowNumber)
		}
	}
	return survey.ValidationWarning{
		Message:      fmt.Sprintf("%d件のセルが既定値で補完されました", total),
		AffectedRows: rows,
		Suggestion:   msgDefaultedHint,
	}, true
}

func rowHasDefault(r survey.Response) bool {
	for _, a := range r.Answers {
		if a.Defaulted {
			return true
		}
	}
	for _, a := range r.Unmapped {
		if a.Defaulted {
			return true
		}
	}
	return false
}
