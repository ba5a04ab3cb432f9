package handlers

// QuestionRequest is the body of POST /api/ai/question.
type QuestionRequest struct {
	Question string `json:"question" validate:"required,notblank,max=2000"`
}

// ErrorResponse represents an error response with validation
type ErrorResponse struct {
	Error   string `json:"error" validate:"required,min=1,max=500"`
	Code    string `json:"code,omitempty" validate:"omitempty,min=1,max=50"`
	Details string `json:"details,omitempty" validate:"omitempty,max=1000"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse represents health check response with validation
type HealthResponse struct {
	Status    string                 `json:"status" validate:"required,oneof=ok alive ready degraded"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}
