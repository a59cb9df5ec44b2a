package models

// HealthCheckResponse returns the health check response struct
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Response MessageError
}

// MessageError contains the inner details for the error message response
type MessageError struct {
	Message string
	Error   string
}
