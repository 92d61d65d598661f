package survey

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 instant format used for normalized dates.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// AnswerKind tags the payload carried by an Answer.
type AnswerKind string

const (
	AnswerOrdinal AnswerKind = "ordinal"
	AnswerBoolean AnswerKind = "boolean"
	AnswerOptions AnswerKind = "options"
	AnswerDate    AnswerKind = "date"
	AnswerNumber  AnswerKind = "number"
	AnswerText    AnswerKind = "text"
)

// Answer is a normalized cell value. Exactly one payload field is meaningful,
// selected by Kind. Defaulted marks values produced by a fallback rule rather
// than read from the cell.
type Answer struct {
	Kind      AnswerKind
	Ordinal   int
	Bool      bool
	Options   []string
	Time      time.Time
	Number    float64
	Text      string
	Defaulted bool
}

func OrdinalAnswer(score int, defaulted bool) Answer {
	return Answer{Kind: AnswerOrdinal, Ordinal: score, Defaulted: defaulted}
}

func BooleanAnswer(b bool, defaulted bool) Answer {
	return Answer{Kind: AnswerBoolean, Bool: b, Defaulted: defaulted}
}

func OptionsAnswer(options []string) Answer {
	if options == nil {
		options = []string{}
	}
	return Answer{Kind: AnswerOptions, Options: options}
}

func DateAnswer(t time.Time) Answer {
	return Answer{Kind: AnswerDate, Time: t.UTC()}
}

func NumberAnswer(n float64) Answer {
	return Answer{Kind: AnswerNumber, Number: n}
}

func TextAnswer(s string) Answer {
	return Answer{Kind: AnswerText, Text: s}
}

// OrdinalScore returns the answer as a 1–5 score when it is one: ordinal
// answers always are, plain numbers only when they are integers in range.
func (a Answer) OrdinalScore() (int, bool) {
	switch a.Kind {
	case AnswerOrdinal:
		return a.Ordinal, a.Ordinal >= 1 && a.Ordinal <= 5
	case AnswerNumber:
		if a.Number == math.Trunc(a.Number) && a.Number >= 1 && a.Number <= 5 {
			return int(a.Number), true
		}
	}
	return 0, false
}

// String renders the answer the way it is shown in tallies.
func (a Answer) String() string {
	switch a.Kind {
	case AnswerOrdinal:
		return strconv.Itoa(a.Ordinal)
	case AnswerBoolean:
		return strconv.FormatBool(a.Bool)
	case AnswerOptions:
		return strings.Join(a.Options, ",")
	case AnswerDate:
		return a.Time.UTC().Format(TimestampLayout)
	case AnswerNumber:
		return strconv.FormatFloat(a.Number, 'f', -1, 64)
	case AnswerText:
		return a.Text
	}
	return ""
}

// MarshalJSON encodes the answer as the plain primitive it carries.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerOrdinal:
		return json.Marshal(a.Ordinal)
	case AnswerBoolean:
		return json.Marshal(a.Bool)
	case AnswerOptions:
		opts := a.Options
		if opts == nil {
			opts = []string{}
		}
		return json.Marshal(opts)
	case AnswerDate:
		return json.Marshal(a.Time.UTC().Format(TimestampLayout))
	case AnswerNumber:
		return json.Marshal(a.Number)
	case AnswerText:
		return json.Marshal(a.Text)
	}
	return []byte("null"), nil
}

// UnmarshalJSON restores an answer from its plain encoding. Integers in the
// 1–5 range decode as numbers, which analysis treats like ordinal scores.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*a = BooleanAnswer(v, false)
	case float64:
		*a = NumberAnswer(v)
	case string:
		*a = TextAnswer(v)
	case []any:
		opts := make([]string, 0, len(v))
		for _, item := range v {
			opts = append(opts, fmt.Sprint(item))
		}
		*a = OptionsAnswer(opts)
	case nil:
		*a = Answer{}
	default:
		return fmt.Errorf("unsupported answer encoding: %s", string(data))
	}
	return nil
}
