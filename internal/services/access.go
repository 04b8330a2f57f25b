package services

import (
	"context"

	"github.com/brainbox/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// CanModify decides whether actor may create, update or delete the given
// owned object. Admins may act on anything; moderators may act on objects
// owned by plain users; everyone may act on objects they own themselves.
func (a *AccessService) CanModify(ctx context.Context, actor *models.User, owned models.Owned) bool {
	if actor == nil {
		return false
	}
	if actor.Role == models.UserRoleAdmin {
		return true
	}

	ownerID := owned.OwnerID()
	if ownerID == actor.ID {
		return true
	}

	if actor.Role == models.UserRoleModerator {
		role, err := a.ownerRole(ctx, ownerID)
		if err != nil {
			return false
		}
		return role == models.UserRoleUser
	}

	return false
}

// CanGrantShare decides whether actor may create a share on file: the file's
// owner always may, a moderator may when the file belongs to a plain user,
// an admin always may.
func (a *AccessService) CanGrantShare(ctx context.Context, actor *models.User, file *models.File) bool {
	return a.CanModify(ctx, actor, file)
}

// CanMutateShare decides whether actor may update or delete an existing
// share. The grant rule applies against the file's owner, and the share's
// grantee may also act on it.
func (a *AccessService) CanMutateShare(ctx context.Context, actor *models.User, share *models.SharedFile, file *models.File) bool {
	if actor != nil && actor.ID == share.UserID {
		return true
	}
	return a.CanGrantShare(ctx, actor, file)
}

func (a *AccessService) ownerRole(ctx context.Context, ownerID uuid.UUID) (models.UserRole, error) {
	var owner models.User
	if err := a.DB.WithContext(ctx).Select("id", "role").First(&owner, "id = ?", ownerID).Error; err != nil {
		return "", err
	}
	return owner.Role, nil
}
