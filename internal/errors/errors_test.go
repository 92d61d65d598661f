package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := SheetNotFound("Sheet9")
	wrapped := Wrap(base, "failed to read workbook")

	assert.Equal(t, CodeSheetNotFound, GetCode(wrapped))
	assert.Equal(t, "failed to read workbook: シート 'Sheet9' が見つかりません", wrapped.Error())
	assert.True(t, IsAppError(wrapped))
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrapf(fmt.Errorf("boom"), "step %d", 2)
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Equal(t, "step 2: boom", wrapped.Error())
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestGetCodeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", EmptyGrid())
	assert.Equal(t, CodeEmptyGrid, GetCode(err))
	assert.Equal(t, "データが見つかりません", UserMessage(err))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, fmt.Errorf("bad year"))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Equal(t, "bad year", UserMessage(err))
}
