package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/brainbox/backend/internal/middleware"
	"github.com/brainbox/backend/internal/models"
	"github.com/brainbox/backend/internal/services"
	"github.com/brainbox/backend/pkg/logger"
	"github.com/brainbox/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
}

func NewUsersHandler(db *gorm.DB, access *services.AccessService) *UsersHandler {
	return &UsersHandler{DB: db, Access: access}
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c, defaultPageSize(h.DB, c))
	username := strings.TrimSpace(c.Query("username"))

	query := h.DB.Model(&models.User{})
	if username != "" {
		query = query.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(username)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var users []models.User
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	if c.Query("agg") == "files" {
		h.annotateFileCounts(users)
	}

	return utils.Paginated(c, users, p, total)
}

func (h *UsersHandler) annotateFileCounts(users []models.User) {
	if len(users) == 0 {
		return
	}

	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	var rows []struct {
		UserID uuid.UUID
		Count  int64
	}
	h.DB.Model(&models.File{}).
		Select("user_id, count(*) as count").
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&rows)

	counts := make(map[uuid.UUID]int64)
	for _, r := range rows {
		counts[r.UserID] = r.Count
	}
	for i := range users {
		n := counts[users[i].ID]
		users[i].FileCount = &n
	}
}

type createUserRequest struct {
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

// Create is the admin path: the user is active immediately, no confirmation
// code is involved.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	fieldErrors := map[string][]string{}
	if req.Username == "" {
		fieldErrors["username"] = append(fieldErrors["username"], "username is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fieldErrors["email"] = append(fieldErrors["email"], "invalid email address")
	}
	if passwordErrors := utils.ValidatePassword(req.Password); len(passwordErrors) > 0 {
		fieldErrors["password"] = append(fieldErrors["password"], passwordErrors...)
	}
	if req.Role != "" && !models.IsValidRole(req.Role) {
		fieldErrors["role"] = append(fieldErrors["role"], "invalid role")
	}
	if len(fieldErrors) > 0 {
		return utils.ValidationFailed(c, fieldErrors)
	}

	role := req.Role
	if role == "" {
		role = models.UserRoleUser
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		profile := models.UserProfile{UserID: user.ID, PageSize: models.DefaultPageSize}
		return tx.Create(&profile).Error
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return utils.Error(c, fiber.StatusConflict, "username or email already registered")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	return utils.Success(c, fiber.StatusCreated, user)
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.
		Preload("Profile").
		Preload("Folders").
		Preload("SharedFiles").
		Preload("SharedFiles.File").
		First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}

	return utils.Success(c, fiber.StatusOK, user)
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (h *UsersHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if !h.Access.CanModify(c.Context(), currentUser, user) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		value := strings.TrimSpace(*req.Username)
		if value == "" {
			return utils.Error(c, fiber.StatusBadRequest, "username cannot be empty")
		}
		updates["username"] = value
	}
	if req.Email != nil {
		value := strings.ToLower(strings.TrimSpace(*req.Email))
		if _, err := mail.ParseAddress(value); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid email address")
		}
		updates["email"] = value
	}
	if req.Password != nil {
		if passwordErrors := utils.ValidatePassword(*req.Password); len(passwordErrors) > 0 {
			return utils.ValidationFailed(c, map[string][]string{"password": passwordErrors})
		}
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
		}
		updates["password_hash"] = hash
	}

	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		if isDuplicateKeyError(err) {
			return utils.Error(c, fiber.StatusConflict, "username or email already taken")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating user")
	}

	var updated models.User
	if err := h.DB.First(&updated, "id = ?", userID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching updated user")
	}

	return utils.Success(c, fiber.StatusOK, updated)
}

type updateRoleRequest struct {
	Role models.UserRole `json:"role"`
}

func (h *UsersHandler) UpdateRole(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if !models.IsValidRole(req.Role) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid role")
	}

	result := h.DB.Model(&models.User{}).Where("id = ?", userID).Update("role", req.Role)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating role")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	logger.Info("user_role_updated", map[string]interface{}{
		"user_id": userID.String(),
		"role":    string(req.Role),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "role updated"})
}

func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	if !h.Access.CanModify(c.Context(), currentUser, user) {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		return deleteUserCascade(tx, userID)
	}); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting user")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "user deleted"})
}

type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// BulkDelete is admin-only (enforced by routing middleware).
func (h *UsersHandler) BulkDelete(c *fiber.Ctx) error {
	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "ids are required")
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		for _, id := range req.IDs {
			if err := deleteUserCascade(tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting users")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": len(req.IDs)})
}
