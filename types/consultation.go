package types

import "time"

// ConsultationStatus is the lifecycle state of a consultation request.
type ConsultationStatus string

const (
	ConsultationPending  ConsultationStatus = "pending"
	ConsultationAnswered ConsultationStatus = "answered"
	ConsultationClosed   ConsultationStatus = "closed"
)

// Valid reports whether s is a known status.
func (s ConsultationStatus) Valid() bool {
	switch s {
	case ConsultationPending, ConsultationAnswered, ConsultationClosed:
		return true
	}
	return false
}

// Consultation is a parent's request for advice.
//
// A consultation starts pending, becomes answered when a doctor replies and
// closed when either party closes it. Closed is terminal.
type Consultation struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`

	Status ConsultationStatus `json:"status"`

	// DoctorID, DoctorName and Answer are set when a doctor answers.
	DoctorID   string     `json:"doctorId,omitempty"`
	DoctorName string     `json:"doctorName,omitempty"`
	Answer     string     `json:"answer,omitempty"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty"`
	ClosedAt   *time.Time `json:"closedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
