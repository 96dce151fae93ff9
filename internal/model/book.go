package model

import (
	"strconv"
	"time"
)

// Book represents a single entry in a user's reading log. Every row is
// owned by exactly one user; all queries filter on OwnerID.
type Book struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Title     string     `json:"title" gorm:"size:512;not null"`
	Author    string     `json:"author" gorm:"size:255"`
	Rating    *int       `json:"rating,omitempty"`
	Review    *string    `json:"review,omitempty" gorm:"type:text"`
	ReadDate  *time.Time `json:"read_date,omitempty" gorm:"type:date"`
	CoverURL  string     `json:"cover_url" gorm:"size:1024"`
	OwnerID   uint       `json:"owner_id" gorm:"index;not null"`
	CreatedAt time.Time  `json:"created_at"`
}

// RatingDisplay renders the rating for templates, empty when unset.
func (b Book) RatingDisplay() string {
	if b.Rating == nil {
		return ""
	}
	return strconv.Itoa(*b.Rating)
}

// ReviewDisplay renders the review for templates, empty when unset.
func (b Book) ReviewDisplay() string {
	if b.Review == nil {
		return ""
	}
	return *b.Review
}

// ReadDateDisplay renders the read date as YYYY-MM-DD, empty when unset.
func (b Book) ReadDateDisplay() string {
	if b.ReadDate == nil {
		return ""
	}
	return b.ReadDate.Format("2006-01-02")
}
