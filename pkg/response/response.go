// Package response defines the envelope every procurehub endpoint returns.
// Clients branch on Status; Fields carries validation failures resolved to
// wizard fields so the UI can route the user to the offending step.
package response

// Response is the standard API envelope
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Fields     interface{} `json:"fields,omitempty"` // per-field validation failures
}

// PagedResponse wraps a list payload with its paging state
type PagedResponse struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
}

// Success wraps data in a success envelope
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error wraps an error message in an error envelope
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Invalid reports a validation failure together with the fields it concerns
func Invalid(statusCode int, err string, fields interface{}) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
		Fields:     fields,
	}
}

// Paged wraps a list payload for requirement and audit-log listings
func Paged(statusCode int, data interface{}, total int64, page, limit int) PagedResponse {
	return PagedResponse{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
	}
}
