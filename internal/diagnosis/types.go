// Package diagnosis wraps the third-party diagnosis API used by the symptom
// checker chat. The API is the platform's only real network dependency.
package diagnosis

// PatientMeta is the minimal patient context the API accepts.
type PatientMeta struct {
	Age int    `json:"age"`
	Sex string `json:"sex"`
}

// Request is the wire shape of a diagnosis call.
type Request struct {
	Symptoms []string    `json:"symptoms"`
	Patient  PatientMeta `json:"patient"`
	Language string      `json:"language"`
}

// Condition is one candidate diagnosis in the API response.
type Condition struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// Response is the diagnosis/recommendation payload.
type Response struct {
	Conditions     []Condition `json:"conditions"`
	Recommendation string      `json:"recommendation"`
	Urgency        string      `json:"urgency"`
	Disclaimer     string      `json:"disclaimer,omitempty"`
}
