package mq

import "time"

// Channels carrying domain events.
const (
	ChannelPostCreated          = "posts.created"
	ChannelConsultationCreated  = "consultations.created"
	ChannelConsultationAnswered = "consultations.answered"
	ChannelConsultationClosed   = "consultations.closed"
)

// ConsultationChannels lists every consultation event channel.
var ConsultationChannels = []string{
	ChannelConsultationCreated,
	ChannelConsultationAnswered,
	ChannelConsultationClosed,
}

// PostCreated is published after a doctor adds a post to the feed.
type PostCreated struct {
	PostID     string    `json:"postId"`
	DoctorID   string    `json:"doctorId"`
	DoctorName string    `json:"doctorName"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ConsultationEvent is published whenever a consultation is created or
// changes status.
type ConsultationEvent struct {
	ConsultationID string    `json:"consultationId"`
	Topic          string    `json:"topic"`
	UserID         string    `json:"userId"`
	DoctorID       string    `json:"doctorId,omitempty"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurredAt"`
}
