package domain

import "time"

// Exchange registra una llamada proxyada al proveedor.
type Exchange struct {
	ID            string    `json:"id"`
	ClientIP      string    `json:"client_ip,omitempty"`
	PromptChars   int       `json:"prompt_chars"`
	ResponseChars int       `json:"response_chars"`
	Status        int       `json:"status"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	LatencyMS     int64     `json:"latency_ms"`
	CreatedAt     time.Time `json:"created_at"`
}
