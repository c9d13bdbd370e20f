package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/edunexus/edunexus-api/internal/models"
	"github.com/edunexus/edunexus-api/internal/shard"
	appErrors "github.com/edunexus/edunexus-api/pkg/errors"
)

type profileRepository interface {
	FindOrCreateSkill(ctx context.Context, q sqlx.ExtContext, name string) (int64, error)
	FindOrCreateInterest(ctx context.Context, q sqlx.ExtContext, name string) (int64, error)
	FindOrCreateSocialLink(ctx context.Context, q sqlx.ExtContext, link string) (int64, error)
	FindOrCreateEducation(ctx context.Context, q sqlx.ExtContext, e models.EducationInput) (int64, error)
	ReplaceSkills(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error
	AppendSkills(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error
	ReplaceInterests(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error
	AppendInterests(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error
	ReplaceSocialLinks(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error
	AppendSocialLinks(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error
	ReplaceEducations(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error
	AppendEducations(ctx context.Context, q sqlx.ExtContext, userID int64, ids []int64) error
	ListSkills(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.Skill, error)
	ListInterests(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.Interest, error)
	ListSocialLinks(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.SocialLink, error)
	ListEducations(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.Education, error)
	ListExperiences(ctx context.Context, q sqlx.ExtContext, userID int64) ([]models.Experience, error)
	UpsertStudentProfile(ctx context.Context, q sqlx.ExtContext, p *models.StudentProfile) error
	UpsertTeacherProfile(ctx context.Context, q sqlx.ExtContext, p *models.TeacherProfile) error
	GetStudentProfile(ctx context.Context, q sqlx.ExtContext, studentID int64) (*models.StudentProfile, error)
	GetTeacherProfile(ctx context.Context, q sqlx.ExtContext, teacherID int64) (*models.TeacherProfile, error)
}

type profileUserRepository interface {
	FindByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.User, error)
}

// ProfileService manages user profile pages. A profile and all of its
// satellite rows live on the user's home shard; lists either replace or
// append depending on the operation.
type ProfileService struct {
	router    *shard.Router
	users     profileUserRepository
	profiles  profileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService instance.
func NewProfileService(router *shard.Router, users profileUserRepository, profiles profileRepository, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{router: router, users: users, profiles: profiles, validator: validate, logger: logger}
}

// SaveProfile performs the initial profile setup. The submitted lists become
// the user's profile: anything previously linked is dropped.
func (s *ProfileService) SaveProfile(ctx context.Context, claims *models.JWTClaims, req models.SaveProfileRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return err
	}
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin profile tx: %w", err)
		}
		defer tx.Rollback()

		if err := s.writeSatellites(ctx, tx, claims.UserID, satelliteLists{
			skills:      req.Skills,
			interests:   req.Interests,
			socialLinks: req.SocialLinks,
			educations:  req.Educations,
		}, true); err != nil {
			return err
		}
		if err := s.upsertExtension(ctx, tx, claims, "", req.Mobile, req.Bio); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return shardWrap(err, "failed to save profile")
	}
	return nil
}

// UpdateProfile amends the caller's profile. Lists append; the extension row
// is overwritten.
func (s *ProfileService) UpdateProfile(ctx context.Context, claims *models.JWTClaims, req models.UpdateProfileRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return err
	}
	err = s.router.Do(ctx, key, func(db *sqlx.DB) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin profile tx: %w", err)
		}
		defer tx.Rollback()

		if err := s.writeSatellites(ctx, tx, claims.UserID, satelliteLists{
			skills:      req.Skills,
			interests:   req.Interests,
			socialLinks: req.SocialLinks,
			educations:  req.Educations,
		}, false); err != nil {
			return err
		}
		if err := s.upsertExtension(ctx, tx, claims, req.ProfilePicture, req.Mobile, req.Bio); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return shardWrap(err, "failed to update profile")
	}
	return nil
}

type satelliteLists struct {
	skills      []string
	interests   []string
	socialLinks []string
	educations  []models.EducationInput
}

// writeSatellites resolves every list entry to its deduplicated row and
// links it. replace drops existing links first; append keeps them.
func (s *ProfileService) writeSatellites(ctx context.Context, tx sqlx.ExtContext, userID int64, lists satelliteLists, replace bool) error {
	skillIDs, err := resolveIDs(ctx, tx, lists.skills, s.profiles.FindOrCreateSkill)
	if err != nil {
		return err
	}
	interestIDs, err := resolveIDs(ctx, tx, lists.interests, s.profiles.FindOrCreateInterest)
	if err != nil {
		return err
	}
	linkIDs, err := resolveIDs(ctx, tx, lists.socialLinks, s.profiles.FindOrCreateSocialLink)
	if err != nil {
		return err
	}
	var educationIDs []int64
	for _, e := range lists.educations {
		id, err := s.profiles.FindOrCreateEducation(ctx, tx, e)
		if err != nil {
			return err
		}
		educationIDs = append(educationIDs, id)
	}

	if replace {
		if err := s.profiles.ReplaceSkills(ctx, tx, userID, skillIDs); err != nil {
			return err
		}
		if err := s.profiles.ReplaceInterests(ctx, tx, userID, interestIDs); err != nil {
			return err
		}
		if err := s.profiles.ReplaceSocialLinks(ctx, tx, userID, linkIDs); err != nil {
			return err
		}
		return s.profiles.ReplaceEducations(ctx, tx, userID, educationIDs)
	}
	if err := s.profiles.AppendSkills(ctx, tx, userID, skillIDs); err != nil {
		return err
	}
	if err := s.profiles.AppendInterests(ctx, tx, userID, interestIDs); err != nil {
		return err
	}
	if err := s.profiles.AppendSocialLinks(ctx, tx, userID, linkIDs); err != nil {
		return err
	}
	return s.profiles.AppendEducations(ctx, tx, userID, educationIDs)
}

func resolveIDs(ctx context.Context, tx sqlx.ExtContext, values []string, resolve func(context.Context, sqlx.ExtContext, string) (int64, error)) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		id, err := resolve(ctx, tx, v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// upsertExtension writes the role-specific one-row profile extension.
func (s *ProfileService) upsertExtension(ctx context.Context, tx sqlx.ExtContext, claims *models.JWTClaims, picture, mobile, bio string) error {
	if claims.Role == models.RoleTeacher || claims.Role == models.RoleAdmin {
		return s.profiles.UpsertTeacherProfile(ctx, tx, &models.TeacherProfile{
			TeacherID: claims.UserID, ProfilePicture: picture, Mobile: mobile, Bio: bio,
		})
	}
	return s.profiles.UpsertStudentProfile(ctx, tx, &models.StudentProfile{
		StudentID: claims.UserID, ProfilePicture: picture, Mobile: mobile, Bio: bio,
	})
}

// GetProfile assembles the full profile page for a user on one shard.
func (s *ProfileService) GetProfile(ctx context.Context, key shard.Key, userID int64) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.router.Do(ctx, key, func(db *sqlx.DB) error {
		user, err := s.users.FindByID(ctx, db, userID)
		if err != nil {
			return err
		}
		profile.User = user.Info(key.String())

		var picture, mobile, bio string
		if user.Role == models.RoleTeacher || user.Role == models.RoleAdmin {
			ext, err := s.profiles.GetTeacherProfile(ctx, db, userID)
			if err != nil {
				return err
			}
			if ext != nil {
				picture, mobile, bio = ext.ProfilePicture, ext.Mobile, ext.Bio
			}
			experiences, err := s.profiles.ListExperiences(ctx, db, userID)
			if err != nil {
				return err
			}
			profile.Experiences = experiences
		} else {
			ext, err := s.profiles.GetStudentProfile(ctx, db, userID)
			if err != nil {
				return err
			}
			if ext != nil {
				picture, mobile, bio = ext.ProfilePicture, ext.Mobile, ext.Bio
			}
		}
		profile.ProfilePicture, profile.Mobile, profile.Bio = picture, mobile, bio

		if profile.Skills, err = s.profiles.ListSkills(ctx, db, userID); err != nil {
			return err
		}
		if profile.Interests, err = s.profiles.ListInterests(ctx, db, userID); err != nil {
			return err
		}
		if profile.SocialLinks, err = s.profiles.ListSocialLinks(ctx, db, userID); err != nil {
			return err
		}
		profile.Educations, err = s.profiles.ListEducations(ctx, db, userID)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	if err != nil {
		return nil, shardWrap(err, "failed to load profile")
	}
	return &profile, nil
}

// MyProfile loads the caller's own profile page.
func (s *ProfileService) MyProfile(ctx context.Context, claims *models.JWTClaims) (*models.UserProfile, error) {
	key, err := shard.Resolve(claims.Location)
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, key, claims.UserID)
}
