package types

import (
	"slices"
	"time"
)

// MediaType is the kind of media attached to a post.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Post is a piece of doctor-authored content shown in the feed.
// Author fields are copied from the doctor's record when the post is created.
type Post struct {
	ID              string    `json:"id"`
	DoctorID        string    `json:"doctorId"`
	DoctorName      string    `json:"doctorName"`
	DoctorSpecialty string    `json:"doctorSpecialty"`
	DoctorAvatar    string    `json:"doctorAvatar"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	MediaURL        string    `json:"mediaUrl"`
	MediaType       MediaType `json:"mediaType"`
	Likes           uint      `json:"likes"`
	Comments        uint      `json:"comments"`
	Shares          uint      `json:"shares"`

	// IsLiked is computed for the requesting viewer and is not persisted
	// as shared state.
	IsLiked bool `json:"isLiked"`

	// LikedBy holds the IDs of the users who liked the post.
	LikedBy []string `json:"likedBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// LikedByViewer reports whether viewerID has liked the post.
func (p Post) LikedByViewer(viewerID string) bool {
	return viewerID != "" && slices.Contains(p.LikedBy, viewerID)
}
