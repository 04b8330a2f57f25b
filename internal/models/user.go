package models

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"
)

func IsValidRole(role UserRole) bool {
	switch role {
	case UserRoleUser, UserRoleModerator, UserRoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	BaseModel
	Username     string   `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	Email        string   `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string   `json:"-" gorm:"type:text;not null"`
	Role         UserRole `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	IsActive     bool     `json:"isActive" gorm:"not null;default:false;index"`
	IsStaff      bool     `json:"isStaff" gorm:"not null;default:false"`

	Profile     *UserProfile `json:"profile,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Folders     []Folder     `json:"folders,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Files       []File       `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	SharedFiles []SharedFile `json:"sharedFiles,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	// FileCount is populated by ?agg=files on the list endpoint.
	FileCount *int64 `json:"fileCount,omitempty" gorm:"-"`
}

func (u User) OwnerID() uuid.UUID {
	return u.ID
}
