package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edunexus/edunexus-api/internal/models"
)

// ProfileRepository manages profile extensions and their satellite tables.
// Satellites (skills, interests, social links, educations, experiences) are
// deduplicated by natural key and linked to users through pivot tables;
// everything stays on the user's home shard.
type ProfileRepository struct{}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{}
}

// findOrCreate upserts a single-column satellite row and returns its ID.
// The no-op DO UPDATE makes RETURNING yield the existing row's ID when the
// value is already present, so concurrent callers converge on one row.
func findOrCreate(ctx context.Context, q sqlx.ExtContext, table, column, value string) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1)
        ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s
        RETURNING id`, table, column, column, column, column)
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, query, value); err != nil {
		return 0, fmt.Errorf("find or create %s: %w", table, err)
	}
	return id, nil
}

// FindOrCreateSkill resolves a skill name to its per-shard row ID.
func (r *ProfileRepository) FindOrCreateSkill(ctx context.Context, q sqlx.ExtContext, name string) (int64, error) {
	return findOrCreate(ctx, q, "skills", "skill_name", name)
}

// FindOrCreateInterest resolves an interest name to its per-shard row ID.
func (r *ProfileRepository) FindOrCreateInterest(ctx context.Context, q sqlx.ExtContext, name string) (int64, error) {
	return findOrCreate(ctx, q, "interests", "interest_name", name)
}

// FindOrCreateSocialLink resolves a social link to its per-shard row ID.
func (r *ProfileRepository) FindOrCreateSocialLink(ctx context.Context, q sqlx.ExtContext, link string) (int64, error) {
	return findOrCreate(ctx, q, "social_links", "social_link", link)
}

// FindOrCreateEducation resolves a degree entry by its natural key.
func (r *ProfileRepository) FindOrCreateEducation(ctx context.Context, q sqlx.ExtContext, e models.EducationInput) (int64, error) {
	query := `INSERT INTO educations (degree, institution, year, description)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (degree, institution, year) DO UPDATE SET description = EXCLUDED.description
        RETURNING id`
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, query, e.Degree, e.Institution, e.Year, e.Description); err != nil {
		return 0, fmt.Errorf("find or create education: %w", err)
	}
	return id, nil
}

// CreateExperience inserts a work history entry and returns its ID.
func (r *ProfileRepository) CreateExperience(ctx context.Context, q sqlx.ExtContext, e models.ExperienceInput) (int64, error) {
	query := `INSERT INTO experiences (organization, role, duration, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING id`
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, query, e.Organization, e.Role, e.Duration, e.Description); err != nil {
		return 0, fmt.Errorf("create experience: %w", err)
	}
	return id, nil
}

// pivot names the link table tying users to one satellite.
type pivot struct {
	table  string
	column string
}

var (
	pivotSkills      = pivot{"user_skills", "skill_id"}
	pivotInterests   = pivot{"user_interests", "interest_id"}
	pivotSocialLinks = pivot{"user_social_links", "social_link_id"}
	pivotEducations  = pivot{"user_educations", "education_id"}
	pivotExperiences = pivot{"user_experiences", "experience_id"}
)

// replacePivot swaps a user's links for exactly the given IDs.
func replacePivot(ctx context.Context, q sqlx.ExtContext, p pivot, userID int64, ids []int64) error {
	if _, err := q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, p.table), userID); err != nil {
		return fmt.Errorf("clear %s: %w", p.table, err)
	}
	return appendPivot(ctx, q, p, userID, ids)
}

// appendPivot links the given IDs to a user, keeping existing links.
func appendPivot(ctx context.Context, q sqlx.ExtContext, p pivot, userID int64, ids []int64) error {
	query := fmt.Sprintf(`INSERT INTO %s (user_id, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, p.table, p.column)
	for _, id := range ids {
		if _, err := q.ExecContext(ctx, query, userID, id); err != nil {
			return fmt.Errorf("link %s: %w", p.table, err)
		}
	}
	return nil
}

// ReplaceSkills swaps the user's skill set for the given IDs.
func (r *ProfileRepository) ReplaceSkills(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error {
	return replacePivot(ctx, q, pivotSkills, userID, ids)
}

// AppendSkills links skills without dropping existing ones.
func (r *ProfileRepository) AppendSkills(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error {
	return appendPivot(ctx, q, pivotSkills, userID, ids)
}

// ReplaceInterests swaps the user's interests for the given IDs.
func (r *ProfileRepository) ReplaceInterests(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error {
	return replacePivot(ctx, q, pivotInterests, userID, ids)
}

// AppendInterests links interests without dropping existing ones.
func (r *ProfileRepository) AppendInterests(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error {
	return appendPivot(ctx, q, pivotInterests, userID, ids)
}

// ReplaceSocialLinks swaps the user's social links for the given IDs.
func (r *ProfileRepository) ReplaceSocialLinks(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error {
	return replacePivot(ctx, q, pivotSocialLinks, userID, ids)
}

// AppendSocialLinks links social links without dropping existing ones.
func (r *ProfileRepository) AppendSocialLinks(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error {
	return appendPivot(ctx, q, pivotSocialLinks, userID, ids)
}

// ReplaceEducations swaps the user's degree entries for the given IDs.
func (r *ProfileRepository) ReplaceEducations(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error {
	return replacePivot(ctx, q, pivotEducations, userID, ids)
}

// AppendEducations links degree entries without dropping existing ones.
func (r *ProfileRepository) AppendEducations(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error {
	return appendPivot(ctx, q, pivotEducations, userID, ids)
}

// AppendExperiences links work history entries to the user.
func (r *ProfileRepository) AppendExperiences(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error {
	return appendPivot(ctx, q, pivotExperiences, userID, ids)
}

// ListSkills returns the user's linked skills.
func (r *ProfileRepository) ListSkills(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.Skill, error) {
	var items []models.Skill
	query := `SELECT s.id, s.skill_name FROM skills s
        JOIN user_skills us ON us.skill_id = s.id WHERE us.user_id = $1 ORDER BY s.skill_name`
	if err := sqlx.SelectContext(ctx, q, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return items, nil
}

// ListInterests returns the user's linked interests.
func (r *ProfileRepository) ListInterests(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.Interest, error) {
	var items []models.Interest
	query := `SELECT i.id, i.interest_name FROM interests i
        JOIN user_interests ui ON ui.interest_id = i.id WHERE ui.user_id = $1 ORDER BY i.interest_name`
	if err := sqlx.SelectContext(ctx, q, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	return items, nil
}

// ListSocialLinks returns the user's linked social links.
func (r *ProfileRepository) ListSocialLinks(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.SocialLink, error) {
	var items []models.SocialLink
	query := `SELECT sl.id, sl.social_link FROM social_links sl
        JOIN user_social_links usl ON usl.social_link_id = sl.id WHERE usl.user_id = $1 ORDER BY sl.id`
	if err := sqlx.SelectContext(ctx, q, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list social links: %w", err)
	}
	return items, nil
}

// ListEducations returns the user's linked degree entries.
func (r *ProfileRepository) ListEducations(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.Education, error) {
	var items []models.Education
	query := `SELECT e.id, e.degree, e.institution, e.year, e.description FROM educations e
        JOIN user_educations ue ON ue.education_id = e.id WHERE ue.user_id = $1 ORDER BY e.year DESC, e.id`
	if err := sqlx.SelectContext(ctx, q, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list educations: %w", err)
	}
	return items, nil
}

// ListExperiences returns the user's linked work history.
func (r *ProfileRepository) ListExperiences(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.Experience, error) {
	var items []models.Experience
	query := `SELECT e.id, e.organization, e.role, e.duration, e.description FROM experiences e
        JOIN user_experiences ue ON ue.experience_id = e.id WHERE ue.user_id = $1 ORDER BY e.id`
	if err := sqlx.SelectContext(ctx, q, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	return items, nil
}

// UpsertStudentProfile writes the one-row-per-student extension.
func (r *ProfileRepository) UpsertStudentProfile(ctx context.Context, q sqlx.ExtContext, p *models.StudentProfile) error {
	query := `INSERT INTO student_profiles (student_id, profile_picture, mobile, bio)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (student_id) DO UPDATE SET
            profile_picture = EXCLUDED.profile_picture,
            mobile = EXCLUDED.mobile,
            bio = EXCLUDED.bio`
	if _, err := q.ExecContext(ctx, query, p.StudentID, p.ProfilePicture, p.Mobile, p.Bio); err != nil {
		return fmt.Errorf("upsert student profile: %w", err)
	}
	return nil
}

// UpsertTeacherProfile writes the one-row-per-teacher extension.
func (r *ProfileRepository) UpsertTeacherProfile(ctx context.Context, q sqlx.ExtContext, p *models.TeacherProfile) error {
	query := `INSERT INTO teacher_profiles (teacher_id, profile_picture, mobile, bio)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (teacher_id) DO UPDATE SET
            profile_picture = EXCLUDED.profile_picture,
            mobile = EXCLUDED.mobile,
            bio = EXCLUDED.bio`
	if _, err := q.ExecContext(ctx, query, p.TeacherID, p.ProfilePicture, p.Mobile, p.Bio); err != nil {
		return fmt.Errorf("upsert teacher profile: %w", err)
	}
	return nil
}

// GetStudentProfile fetches the student extension row, or nil when the user
// has not filled it in yet.
func (r *ProfileRepository) GetStudentProfile(ctx context.Context, q sqlx.ExtContext, studentID int64) (*models.StudentProfile, error) {
	var p models.StudentProfile
	query := `SELECT student_id, profile_picture, mobile, bio FROM student_profiles WHERE student_id = $1`
	if err := sqlx.GetContext(ctx, q, &p, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get student profile: %w", err)
	}
	return &p, nil
}

// GetTeacherProfile fetches the teacher extension row, or nil when absent.
func (r *ProfileRepository) GetTeacherProfile(ctx context.Context, q sqlx.ExtContext, teacherID int64) (*models.TeacherProfile, error) {
	var p models.TeacherProfile
	query := `SELECT teacher_id, profile_picture, mobile, bio FROM teacher_profiles WHERE teacher_id = $1`
	if err := sqlx.GetContext(ctx, q, &p, query, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher profile: %w", err)
	}
	return &p, nil
}

// CreateSubscription records a teacher's plan purchase.
func (r *ProfileRepository) CreateSubscription(ctx context.Context, q sqlx.ExtContext, s *models.Subscription) error {
	query := `INSERT INTO subscriptions (teacher_id, plan_name, price, start_date, end_date, stripe_payment_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
        RETURNING id, created_at, updated_at`
	err := sqlx.GetContext(ctx, q, s, query,
		s.TeacherID, s.PlanName, s.Price, s.StartDate, s.EndDate, s.GatewayPayment)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}
