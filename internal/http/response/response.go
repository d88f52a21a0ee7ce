package response

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"placementcell/internal/common"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data,omitempty"`
	Pagination *common.Pagination `json:"pagination,omitempty"`
	Message    string             `json:"message,omitempty"`
	Code       common.Code        `json:"code,omitempty"`
	Fields     map[string]string  `json:"fields,omitempty"`
}

// ErrorCollector counts server errors written through Error.
type ErrorCollector interface {
	IncErrors()
}

var collector atomic.Value

func SetErrorCollector(c ErrorCollector) {
	if c == nil {
		return
	}
	collector.Store(c)
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Envelope{Success: true, Data: data})
}

func Paginated(w http.ResponseWriter, data interface{}, pagination common.Pagination) {
	write(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: &pagination})
}

func Message(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Success: true, Message: message})
}

// Error writes the failure envelope. Internal causes are never exposed.
func Error(w http.ResponseWriter, err error) {
	appErr := common.AsError(err)
	status := StatusFor(appErr.Code)
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		message = "internal server error"
		if c, ok := collector.Load().(ErrorCollector); ok {
			c.IncErrors()
		}
	}
	write(w, status, Envelope{Success: false, Message: message, Code: appErr.Code, Fields: appErr.Fields})
}

func StatusFor(code common.Code) int {
	switch code {
	case common.CodeValidation:
		return http.StatusBadRequest
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeConflict:
		return http.StatusConflict
	case common.CodeUnauthorized:
		return http.StatusUnauthorized
	case common.CodeForbidden:
		return http.StatusForbidden
	case common.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
