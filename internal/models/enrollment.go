package models

import "time"

// Enrollment records a student's paid access to a course. Both rows live on
// the same shard, so the pair (student_id, course_id) is unique per region.
type Enrollment struct {
	ID         int64     `db:"id" json:"id"`
	StudentID  int64     `db:"student_id" json:"student_id"`
	CourseID   int64     `db:"course_id" json:"course_id"`
	TeacherID  int64     `db:"teacher_id" json:"teacher_id"`
	EnrollDate time.Time `db:"enroll_date" json:"enroll_date"`
	PaidAmount float64   `db:"paid_amount" json:"paid_amount"`
	Location   string    `db:"location" json:"location"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail joins an enrollment with its course and participants for
// listings, receipts and the admin export.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle  string  `db:"course_title" json:"course_title"`
	Category     string  `db:"category" json:"category"`
	Thumbnail    string  `db:"thumbnail" json:"thumbnail"`
	Price        float64 `db:"price" json:"price"`
	StudentName  string  `db:"student_name" json:"student_name"`
	StudentEmail string  `db:"student_email" json:"student_email"`
	TeacherName  string  `db:"teacher_name" json:"teacher_name"`
}

// EnrollRequest purchases a course. PaidAmount must match the course price
// exactly; PaymentIntentID references the gateway intent backing the payment.
type EnrollRequest struct {
	CourseID        int64   `json:"course_id" validate:"required"`
	PaidAmount      float64 `json:"paid_amount" validate:"gte=0"`
	PaymentIntentID string  `json:"payment_intent_id,omitempty"`
}
