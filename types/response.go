package types

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error      string `json:"error"`
	ErrorCode  string `json:"errorCode,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
