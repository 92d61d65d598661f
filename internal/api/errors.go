package api

import (
	"net/http"

	"surveylens/internal/errors"

	"github.com/go-chi/render"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"error"`
}

// Render implements render.Renderer.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

var statusByCode = map[string]int{
	errors.CodeNotFound:            http.StatusNotFound,
	errors.CodeInvalidInput:        http.StatusBadRequest,
	errors.CodeValidationError:     http.StatusBadRequest,
	errors.CodeParseFailed:         http.StatusUnprocessableEntity,
	errors.CodeUnsupportedFormat:   http.StatusUnsupportedMediaType,
	errors.CodeSheetNotFound:       http.StatusUnprocessableEntity,
	errors.CodeEmptyGrid:           http.StatusUnprocessableEntity,
	errors.CodeUnsupportedAnalysis: http.StatusBadRequest,
	errors.CodeNotAnalyzed:         http.StatusConflict,
	errors.CodeExternalService:     http.StatusBadGateway,
}

// NewErrorResponse maps an error to its HTTP status. Errors without a known
// code become 500 with a generic message.
func NewErrorResponse(err error) *ErrorResponse {
	if !errors.IsAppError(err) {
		return &ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       errors.CodeInternalError,
			Message:    "サーバーエラーが発生しました",
		}
	}
	code := errors.GetCode(err)
	status, ok := statusByCode[code]
	if !ok {
		return &ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       code,
			Message:    "サーバーエラーが発生しました",
		}
	}
	return &ErrorResponse{StatusCode: status, Code: code, Message: errors.UserMessage(err)}
}
