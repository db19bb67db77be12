package repositories

import (
	"context"

	"cleanbook/internal/constants"
	"cleanbook/internal/database"
	. "cleanbook/internal/models"
	"cleanbook/internal/types"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*User, error)
	GetByAuthSubject(ctx context.Context, tx *gorm.DB, subject string) (*User, error)
	Create(ctx context.Context, tx *gorm.DB, user *User) error
	Update(ctx context.Context, tx *gorm.DB, user *User, fields map[string]any) error
	ClearUserCache(ctx context.Context, subject string)
}

type userRepository struct {
	cache database.CacheClient
	log   logger.Logger
}

func NewUserRepository(cache database.CacheClient) UserRepository {
	return &userRepository{
		cache: cache,
		log:   logger.New("userRepository"),
	}
}

func (r *userRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*User, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByID")

	var user User
	if err := tx.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("user not found")
		}
		return nil, log.Err("failed to get user by id", err, "id", id)
	}

	return &user, nil
}

func (r *userRepository) GetByAuthSubject(
	ctx context.Context,
	tx *gorm.DB,
	subject string,
) (*User, error) {
	log := r.log.TraceFromContext(ctx).Function("GetByAuthSubject")

	var user User
	if r.cache != nil {
		found, err := database.NewCacheBuilder(r.cache, subject).
			WithContext(ctx).
			WithHash(constants.UserCachePrefix).
			Get(&user)
		if err != nil {
			log.Warn("failed to get user from cache", "subject", subject, "error", err)
		}
		if found {
			return &user, nil
		}
	}

	if err := tx.WithContext(ctx).First(&user, "auth_subject = ?", subject).Error; err != nil {
		if isNotFound(err) {
			return nil, types.NotFound("user not found")
		}
		return nil, log.Err("failed to get user by auth subject", err, "subject", subject)
	}

	r.cacheUser(ctx, &user)
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, tx *gorm.DB, user *User) error {
	log := r.log.TraceFromContext(ctx).Function("Create")

	if user.AuthSubject == "" {
		return types.Validation("auth subject is required")
	}

	if err := tx.WithContext(ctx).Create(user).Error; err != nil {
		return log.Err("failed to create user", err, "subject", user.AuthSubject)
	}

	return nil
}

// Update writes the given columns and refreshes user with the stored row.
func (r *userRepository) Update(
	ctx context.Context,
	tx *gorm.DB,
	user *User,
	fields map[string]any,
) error {
	log := r.log.TraceFromContext(ctx).Function("Update")

	if err := tx.WithContext(ctx).Model(user).Updates(fields).Error; err != nil {
		return log.Err("failed to update user", err, "userID", user.ID)
	}

	if err := tx.WithContext(ctx).First(user, "id = ?", user.ID).Error; err != nil {
		return log.Err("failed to reload user", err, "userID", user.ID)
	}

	r.ClearUserCache(ctx, user.AuthSubject)
	return nil
}

func (r *userRepository) ClearUserCache(ctx context.Context, subject string) {
	if r.cache == nil {
		return
	}

	if err := database.NewCacheBuilder(r.cache, subject).
		WithContext(ctx).
		WithHash(constants.UserCachePrefix).
		Delete(); err != nil {
		r.log.Function("ClearUserCache").
			Warn("failed to clear user cache", "subject", subject, "error", err)
	}
}

func (r *userRepository) cacheUser(ctx context.Context, user *User) {
	if r.cache == nil {
		return
	}

	if err := database.NewCacheBuilder(r.cache, user.AuthSubject).
		WithContext(ctx).
		WithHash(constants.UserCachePrefix).
		WithStruct(user).
		WithTTL(constants.UserCacheExpiry).
		Set(); err != nil {
		r.log.Function("cacheUser").
			Warn("failed to add user to cache", "userID", user.ID, "error", err)
	}
}
