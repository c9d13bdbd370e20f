package models

import "time"

// Module is an ordered section within a course.
type Module struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	Title     string    `db:"title" json:"title"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Video is a recorded lesson within a module.
type Video struct {
	ID        int64     `db:"id" json:"id"`
	ModuleID  int64     `db:"module_id" json:"module_id"`
	Title     string    `db:"title" json:"title"`
	VideoURL  string    `db:"video_url" json:"video_url"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LiveClass is a scheduled live session attached to a module.
type LiveClass struct {
	ID        int64     `db:"id" json:"id"`
	ModuleID  int64     `db:"module_id" json:"module_id"`
	Title     string    `db:"title" json:"title"`
	Schedule  time.Time `db:"schedule" json:"schedule"`
	Link      string    `db:"link" json:"link"`
	Duration  int       `db:"duration" json:"duration"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ModuleContent bundles a module with its videos and live classes.
type ModuleContent struct {
	Module      Module      `json:"module"`
	Videos      []Video     `json:"videos"`
	LiveClasses []LiveClass `json:"live_classes"`
}

// ScheduledClass is an upcoming live class joined with its course context,
// as shown on a teacher's schedule.
type ScheduledClass struct {
	LiveClass
	ModuleTitle string `db:"module_title" json:"module_title"`
	CourseID    int64  `db:"course_id" json:"course_id"`
	CourseTitle string `db:"course_title" json:"course_title"`
}

// CreateModuleRequest appends a module to a course.
type CreateModuleRequest struct {
	CourseID int64  `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
}

// CreateVideoRequest attaches a recorded lesson to a module.
type CreateVideoRequest struct {
	ModuleID int64  `json:"module_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	VideoURL string `json:"video_url" validate:"required,url"`
	Position int    `json:"position" validate:"gte=0"`
}

// CreateLiveClassRequest schedules a live session on a module.
type CreateLiveClassRequest struct {
	ModuleID int64     `json:"module_id" validate:"required"`
	Title    string    `json:"title" validate:"required"`
	Schedule time.Time `json:"schedule" validate:"required"`
	Link     string    `json:"link" validate:"required,url"`
	Duration int       `json:"duration" validate:"gt=0"`
}
