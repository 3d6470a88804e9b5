package api

// AnalyzeRequest represents the request payload for a palm analysis
type AnalyzeRequest struct {
	Image  string `json:"image"`
	Zodiac string `json:"zodiac"`
}

// HealthResponse represents the health check payload
type HealthResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse represents an error response. Raw is only present when the
// model answered with text that could not be used.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Raw   string `json:"raw,omitempty"`
}
