package models

import "github.com/google/uuid"

type File struct {
	BaseModel
	Name     string     `json:"name" gorm:"type:varchar(100);not null"`
	Content  string     `json:"content" gorm:"type:text;not null;default:''"`
	UserID   uuid.UUID  `json:"userID" gorm:"type:uuid;not null;index"`
	FolderID *uuid.UUID `json:"folderID,omitempty" gorm:"type:uuid;index"`

	User        *User        `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
	Folder      *Folder      `json:"folder,omitempty" gorm:"foreignKey:FolderID"`
	SharedFiles []SharedFile `json:"sharedUsers,omitempty" gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`

	// SharedUserCount is populated by ?agg=shared on the list endpoint.
	SharedUserCount *int64 `json:"sharedUserCount,omitempty" gorm:"-"`
}

func (f File) OwnerID() uuid.UUID {
	return f.UserID
}
