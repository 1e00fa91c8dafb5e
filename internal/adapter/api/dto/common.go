package dto

// ErrorResponse is the envelope returned for failed requests
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse is the envelope returned for successful operations
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination holds page selection for list endpoints
type Pagination struct {
	Limit  int
	Offset int
}

// GetPagination clamps limit and offset to sane values
func GetPagination(limit, offset int) Pagination {
	if limit < 1 {
		limit = 50
	} else if limit > 200 {
		limit = 200
	}

	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// NewErrorResponse creates a new error envelope
func NewErrorResponse(code int, message, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewSuccessResponse creates a new success envelope
func NewSuccessResponse(message string, data interface{}) SuccessResponse {
	return SuccessResponse{
		Message: message,
		Data:    data,
	}
}
