package mgmtserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ProblemDetail is an RFC 7807 problem document.
type ProblemDetail struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Status    int       `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	Instance  string    `json:"instance"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, code int, detail string) {
	problem := ProblemDetail{
		Type:      fmt.Sprintf("https://httpstatuses.com/%d", code),
		Title:     statusTitle(code),
		Status:    code,
		Detail:    detail,
		Instance:  r.URL.Path,
		Timestamp: time.Now(),
		RequestID: RequestID(r.Context()),
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(problem)
}

func statusTitle(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Error"
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
