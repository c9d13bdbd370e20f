package models

import "time"

// Satellite lookup rows. Each is deduplicated by its natural key and linked
// to users through a pivot table, all on the user's home shard.
type Skill struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"skill_name" json:"name"`
}

type Interest struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"interest_name" json:"name"`
}

type SocialLink struct {
	ID   int64  `db:"id" json:"id"`
	Link string `db:"social_link" json:"link"`
}

// Education is a degree entry shared through the user_educations pivot.
type Education struct {
	ID          int64  `db:"id" json:"id"`
	Degree      string `db:"degree" json:"degree"`
	Institution string `db:"institution" json:"institution"`
	Year        string `db:"year" json:"year"`
	Description string `db:"description" json:"description"`
}

// Experience is a work history entry collected when applying for a teacher
// account.
type Experience struct {
	ID           int64  `db:"id" json:"id"`
	Organization string `db:"organization" json:"organization"`
	Role         string `db:"role" json:"role"`
	Duration     string `db:"duration" json:"duration"`
	Description  string `db:"description" json:"description"`
}

// StudentProfile is the one-row-per-student profile extension.
type StudentProfile struct {
	StudentID      int64  `db:"student_id" json:"student_id"`
	ProfilePicture string `db:"profile_picture" json:"profile_picture"`
	Mobile         string `db:"mobile" json:"mobile"`
	Bio            string `db:"bio" json:"bio"`
}

// TeacherProfile is the one-row-per-teacher profile extension.
type TeacherProfile struct {
	TeacherID      int64  `db:"teacher_id" json:"teacher_id"`
	ProfilePicture string `db:"profile_picture" json:"profile_picture"`
	Mobile         string `db:"mobile" json:"mobile"`
	Bio            string `db:"bio" json:"bio"`
}

// Subscription records a teacher's plan on their home shard.
type Subscription struct {
	ID             int64     `db:"id" json:"id"`
	TeacherID      int64     `db:"teacher_id" json:"teacher_id"`
	PlanName       string    `db:"plan_name" json:"plan_name"`
	Price          float64   `db:"price" json:"price"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	EndDate        time.Time `db:"end_date" json:"end_date"`
	GatewayPayment string    `db:"stripe_payment_id" json:"stripe_payment_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UserProfile aggregates everything a profile page shows.
type UserProfile struct {
	User           UserInfo     `json:"user"`
	Bio            string       `json:"bio"`
	Mobile         string       `json:"mobile"`
	ProfilePicture string       `json:"profile_picture"`
	Skills         []Skill      `json:"skills"`
	Interests      []Interest   `json:"interests"`
	SocialLinks    []SocialLink `json:"social_links"`
	Educations     []Education  `json:"educations"`
	Experiences    []Experience `json:"experiences,omitempty"`
}

// EducationInput is one degree entry in a profile payload.
type EducationInput struct {
	Degree      string `json:"degree" validate:"required"`
	Institution string `json:"institution" validate:"required"`
	Year        string `json:"year"`
	Description string `json:"description"`
}

// SaveProfileRequest is the initial profile setup. Its lists replace whatever
// the user had before.
type SaveProfileRequest struct {
	Mobile      string           `json:"mobile"`
	Bio         string           `json:"bio"`
	Skills      []string         `json:"skills" validate:"dive,required"`
	Interests   []string         `json:"interests" validate:"dive,required"`
	SocialLinks []string         `json:"social_links" validate:"dive,required"`
	Educations  []EducationInput `json:"educations" validate:"dive"`
}

// UpdateProfileRequest amends an existing profile. Its lists append; already
// linked entries are kept.
type UpdateProfileRequest struct {
	Mobile         string           `json:"mobile"`
	Bio            string           `json:"bio"`
	ProfilePicture string           `json:"profile_picture"`
	Skills         []string         `json:"skills" validate:"dive,required"`
	Interests      []string         `json:"interests" validate:"dive,required"`
	SocialLinks    []string         `json:"social_links" validate:"dive,required"`
	Educations     []EducationInput `json:"educations" validate:"dive"`
}

// ExperienceInput is one work history entry in an apply-for-teacher payload.
type ExperienceInput struct {
	Organization string `json:"organization" validate:"required"`
	Role         string `json:"role" validate:"required"`
	Duration     string `json:"duration"`
	Description  string `json:"description"`
}
