package models

import "time"

// Categories is the closed set of course categories accepted at creation.
var Categories = []string{
	"Development",
	"Business",
	"Finance & Accounting",
	"IT & Software",
	"Office Productivity",
	"Personal Development",
	"Design",
	"Marketing",
	"Lifestyle",
	"Photography & Video",
	"Health & Fitness",
	"Music",
	"Teaching & Academics",
}

// IsValidCategory reports whether the category belongs to the closed set.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Course represents a course row on the shard of the teacher who owns it.
type Course struct {
	ID          int64     `db:"id" json:"id"`
	TeacherID   int64     `db:"teacher_id" json:"teacher_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Price       float64   `db:"price" json:"price"`
	Thumbnail   string    `db:"thumbnail" json:"thumbnail"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CreateCourseRequest is the multipart payload for publishing a course. The
// thumbnail file travels alongside and is stored on disk by the service.
type CreateCourseRequest struct {
	Title       string  `form:"title" validate:"required"`
	Description string  `form:"description" validate:"required"`
	Category    string  `form:"category" validate:"required"`
	Price       float64 `form:"price" validate:"gte=0"`
}
