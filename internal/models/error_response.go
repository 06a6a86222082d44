package models

import "net/http"

// Машинно-читаемые коды отклонения заявок и прочих ошибок ядра.
const (
	CodeTenderNotBiddable    = "tender_not_biddable"
	CodeInvalidAmount        = "invalid_amount"
	CodeNotBelowCurrentPrice = "not_below_current_price"
	CodeDecreaseTooSmall     = "decrease_too_small"
	CodeConfirmationRequired = "confirmation_required"
	CodeNotFound             = "not_found"
	CodeConflict             = "conflict"
	CodeForbidden            = "forbidden"
	CodeBadRequest           = "bad_request"
	CodeUnauthorized         = "unauthorized"
	CodeTooManyRequests      = "too_many_requests"
)

// ErrorResponse описывает ошибку с HTTP-кодом, кодом причины и сообщением.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"reason"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, code, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Code:       code,
		Message:    message}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// NewRejection создает отклонение заявки (ошибка, исправимая пользователем).
func NewRejection(code, message string) *ErrorResponse {
	return NewErrorResponse(http.StatusUnprocessableEntity, code, message)
}

// IsRejection сообщает, является ли ошибка отклонением заявки с данным кодом.
func IsRejection(err error, code string) bool {
	resp, ok := err.(*ErrorResponse)
	return ok && resp.Code == code
}
