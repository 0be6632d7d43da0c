package model

// ListResponse is the standard envelope for list endpoints, wrapping results
// in a "resource" array with optional pagination metadata.
type ListResponse struct {
	Resource interface{}   `json:"resource"`
	Meta     *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta contains pagination information for list responses.
type ResponseMeta struct {
	Count  int    `json:"count"`
	Total  *int64 `json:"total,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
