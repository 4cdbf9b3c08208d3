package services

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/fittrack/internal/common"
	"github.com/dmitrijs2005/fittrack/internal/cryptox"
	"github.com/dmitrijs2005/fittrack/internal/logging"
	"github.com/dmitrijs2005/fittrack/internal/server/models"
	"github.com/dmitrijs2005/fittrack/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fittrack/internal/server/storage"
)

const (
	maxNameLength  = 100
	maxPhoneLength = 32
	dateLayout     = "2006-01-02"
)

// FieldCipher is the in-place encryption ProfileService needs.
// cryptox.FieldCipher implements it.
type FieldCipher interface {
	EncryptStrings(fields map[string]*string) error
	DecryptStrings(fields map[string]*string) cryptox.FieldErrors
}

// AvatarPresigner issues upload URLs for avatar images.
type AvatarPresigner interface {
	PresignUpload(ctx context.Context, userID, contentType string) (*storage.Upload, error)
}

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	FirstName   *string  `json:"first_name"`
	LastName    *string  `json:"last_name"`
	Phone       *string  `json:"phone"`
	DateOfBirth *string  `json:"date_of_birth"`
	HeightCm    *float64 `json:"height_cm"`
	WeightKg    *float64 `json:"weight_kg"`
}

// ProfileService stores profiles with their personal fields encrypted and
// hands out plaintext copies.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      FieldCipher
	avatars     AvatarPresigner
	log         logging.Logger
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, cipher FieldCipher, avatars AvatarPresigner, log logging.Logger) *ProfileService {
	return &ProfileService{
		db:          db,
		repomanager: m,
		cipher:      cipher,
		avatars:     avatars,
		log:         log.With("module", "profile"),
	}
}

// Get loads and decrypts the profile of userID. Fields that fail to decrypt
// are nil in the returned profile and listed in FieldErrors; the rest of the
// profile is still returned.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, cryptox.FieldErrors, error) {
	p, err := s.repomanager.Profiles(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.New(common.KindNotFound, "No profile found for this user")
		}
		return nil, nil, common.Wrap(common.KindInternal, err, "load profile")
	}

	fieldErrs := s.cipher.DecryptStrings(p.ProtectedFields())
	for _, name := range fieldErrs.Fields() {
		p.ClearProtectedField(name)
		s.log.Warn(ctx, "profile field failed to decrypt", "user_id", userID, "field", name, "error", fieldErrs[name])
	}

	return p, fieldErrs, nil
}

// Update validates in, encrypts its personal fields and stores it as the
// profile of userID. The returned profile carries plaintext.
func (s *ProfileService) Update(ctx context.Context, userID string, in ProfileInput) (*models.Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	plain := &models.Profile{
		UserID:      userID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Phone:       in.Phone,
		DateOfBirth: in.DateOfBirth,
		HeightCm:    in.HeightCm,
		WeightKg:    in.WeightKg,
	}

	stored := plain.Clone()
	if err := s.cipher.EncryptStrings(stored.ProtectedFields()); err != nil {
		return nil, err
	}
	if err := s.repomanager.Profiles(s.db).Upsert(ctx, stored); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.New(common.KindNotFound, "No user found with that ID")
		}
		return nil, common.Wrap(common.KindInternal, err, "save profile")
	}

	plain.UpdatedAt = stored.UpdatedAt
	return plain, nil
}

// AvatarUpload presigns an upload for a new avatar and records its key on
// the profile. Nothing is presigned for a user without a profile.
func (s *ProfileService) AvatarUpload(ctx context.Context, userID, contentType string) (*storage.Upload, error) {
	if contentType != "" && contentType != "image/png" && contentType != "image/jpeg" && contentType != "image/webp" {
		return nil, common.New(common.KindValidationFailure, "Avatar must be a PNG, JPEG or WebP image")
	}

	profiles := s.repomanager.Profiles(s.db)
	if _, err := profiles.Get(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.New(common.KindNotFound, "No profile found for this user")
		}
		return nil, common.Wrap(common.KindInternal, err, "load profile")
	}

	up, err := s.avatars.PresignUpload(ctx, userID, contentType)
	if err != nil {
		return nil, common.Wrap(common.KindInternal, err, "presign avatar")
	}

	if err := profiles.SetAvatarKey(ctx, userID, up.Key); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.New(common.KindNotFound, "No profile found for this user")
		}
		return nil, common.Wrap(common.KindInternal, err, "save avatar key")
	}

	return up, nil
}

// Validate checks lengths, the date format and body measurements.
func (in ProfileInput) Validate() error {
	for name, v := range map[string]*string{
		models.ProfileFieldFirstName: in.FirstName,
		models.ProfileFieldLastName:  in.LastName,
	} {
		if v != nil && utf8.RuneCountInString(*v) > maxNameLength {
			return common.New(common.KindValidationFailure, "%s must be at most %d characters", name, maxNameLength)
		}
	}
	if in.Phone != nil && len(*in.Phone) > maxPhoneLength {
		return common.New(common.KindValidationFailure, "phone must be at most %d characters", maxPhoneLength)
	}
	if in.DateOfBirth != nil {
		dob, err := time.Parse(dateLayout, *in.DateOfBirth)
		if err != nil {
			return common.New(common.KindValidationFailure, "date_of_birth must be formatted as YYYY-MM-DD")
		}
		if dob.After(time.Now()) {
			return common.New(common.KindValidationFailure, "date_of_birth must be in the past")
		}
	}
	if in.HeightCm != nil && (*in.HeightCm <= 0 || *in.HeightCm > 300) {
		return common.New(common.KindValidationFailure, "height_cm must be between 0 and 300")
	}
	if in.WeightKg != nil && (*in.WeightKg <= 0 || *in.WeightKg > 500) {
		return common.New(common.KindValidationFailure, "weight_kg must be between 0 and 500")
	}
	return nil
}
