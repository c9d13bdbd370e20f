package models

// CourseSummary is the catalog projection of a course: the course row joined
// with its instructor and the per-shard aggregates the storefront shows.
type CourseSummary struct {
	ID            int64   `db:"id" json:"id"`
	Title         string  `db:"title" json:"title"`
	Description   string  `db:"description" json:"description"`
	Category      string  `db:"category" json:"category"`
	Price         float64 `db:"price" json:"price"`
	Thumbnail     string  `db:"thumbnail" json:"thumbnail"`
	Instructor    string  `db:"instructor" json:"instructor"`
	TeacherEmail  string  `db:"teacher_email" json:"teacher_email"`
	Rating        float64 `db:"rating" json:"rating"`
	SellCount     int64   `db:"sell_count" json:"sell_count"`
	FirstVideoURL *string `db:"first_video_url" json:"first_video_url,omitempty"`
}

// CatalogCourse tags a summary with the region it came from.
type CatalogCourse struct {
	CourseSummary
	Location string `json:"location"`
}

// CourseContent is a course with its full module tree, returned to enrolled
// students and to the owning teacher.
type CourseContent struct {
	Course     Course          `json:"course"`
	Instructor string          `json:"instructor"`
	Modules    []ModuleContent `json:"modules"`
}
