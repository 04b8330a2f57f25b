package models

import "github.com/google/uuid"

type Folder struct {
	BaseModel
	Name           string     `json:"name" gorm:"type:varchar(100);not null;index"`
	UserID         uuid.UUID  `json:"userID" gorm:"type:uuid;not null;index"`
	ParentFolderID *uuid.UUID `json:"parentFolderID,omitempty" gorm:"type:uuid;index"`

	User         *User    `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
	ParentFolder *Folder  `json:"parentFolder,omitempty" gorm:"foreignKey:ParentFolderID"`
	ChildFolders []Folder `json:"-" gorm:"foreignKey:ParentFolderID;constraint:OnDelete:CASCADE"`
	Files        []File   `json:"files,omitempty" gorm:"foreignKey:FolderID;constraint:OnDelete:CASCADE"`

	// FileCount is populated by ?agg=files; SharedUserCount by the
	// folders-by-shared-users statistic.
	FileCount       *int64 `json:"fileCount,omitempty" gorm:"-"`
	SharedUserCount *int64 `json:"sharedUserCount,omitempty" gorm:"-"`
}

func (f Folder) OwnerID() uuid.UUID {
	return f.UserID
}
