package models

import "github.com/google/uuid"

type SharePermission string

const (
	SharePermissionRead      SharePermission = "R"
	SharePermissionReadWrite SharePermission = "RW"
)

func IsValidSharePermission(p SharePermission) bool {
	return p == SharePermissionRead || p == SharePermissionReadWrite
}

// SharedFile grants a user access to a file they do not own. The
// (user_id, file_id) pair is unique and the grantee is never the owner.
type SharedFile struct {
	BaseModel
	UserID     uuid.UUID       `json:"userID" gorm:"type:uuid;not null;uniqueIndex:idx_shared_file_pair"`
	FileID     uuid.UUID       `json:"fileID" gorm:"type:uuid;not null;uniqueIndex:idx_shared_file_pair"`
	Permission SharePermission `json:"permission" gorm:"type:varchar(2);not null"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
	File *File `json:"file,omitempty" gorm:"foreignKey:FileID;references:ID"`
}

func (SharedFile) TableName() string {
	return "shared_files"
}

// OwnerID reports the owner of the shared file, not the grantee; permission
// checks on a share are made against the file's owner.
func (s SharedFile) OwnerID() uuid.UUID {
	if s.File != nil {
		return s.File.UserID
	}
	return uuid.Nil
}
