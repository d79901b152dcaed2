package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recipehub/recipehub/internal/domain/user"
	"github.com/recipehub/recipehub/internal/http/middlewares"
	"github.com/recipehub/recipehub/internal/repo/postgres"
	"github.com/recipehub/recipehub/internal/security"
)

type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	Update(ctx context.Context, id int64, name *string, passwordHash *string) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID int64, email, role string) (string, error)
}

type UsersHandler struct {
	users  UserStore
	tokens TokenIssuer
	log    *slog.Logger
}

func NewUsersHandler(users UserStore, tokens TokenIssuer, log *slog.Logger) *UsersHandler {
	return &UsersHandler{users: users, tokens: tokens, log: log}
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=5,max=128"`
	Name     string `json:"name" binding:"required,min=1,max=255"`
}

type TokenRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateMeRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=255"`
	Password *string `json:"password" binding:"omitempty,min=5,max=128"`
}

// userProfile is the self-service view of an account. The id and the
// password hash stay server-side.
type userProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func profileOf(u user.User) userProfile {
	return userProfile{Email: u.Email, Name: u.Name}
}

// SignUp registers a new account. A taken email is a validation
// failure, not a conflict, so callers cannot probe which is which
// against the signup form vs the token form.
func (h *UsersHandler) SignUp(ctx *gin.Context) {
	var req CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email := user.NormalizeEmail(req.Email)

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "hash password", "error", err)
		RespondInternal(ctx, "Failed to create user")
		return
	}

	u, err := h.users.Create(ctx.Request.Context(), email, hash, req.Name, user.RoleUser)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondBadRequest(ctx, "Invalid request body", gin.H{
				"fields": []FieldError{
					{Field: "email", Rule: "unique", Message: "is already registered"},
				},
			})
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "create user", "error", err)
		RespondInternal(ctx, "Failed to create user")
		return
	}

	ctx.JSON(http.StatusCreated, profileOf(u))
}

// Token exchanges credentials for an access token. Bad credentials are
// a 400, matching the validation-style failure of the signup endpoint,
// and the response never says whether the email exists.
func (h *UsersHandler) Token(ctx *gin.Context) {
	var req TokenRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email := user.NormalizeEmail(req.Email)

	u, err := h.users.GetByEmail(ctx.Request.Context(), email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondInvalidCredentials(ctx)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "lookup user", "error", err)
		RespondInternal(ctx, "Failed to authenticate")
		return
	}

	if !u.IsActive {
		respondInvalidCredentials(ctx)
		return
	}

	if security.CheckPassword(u.PasswordHash, req.Password) != nil {
		respondInvalidCredentials(ctx)
		return
	}

	token, err := h.tokens.GenerateAccessToken(u.ID, u.Email, u.Role)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "issue token", "error", err)
		RespondInternal(ctx, "Failed to authenticate")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": token})
}

func respondInvalidCredentials(ctx *gin.Context) {
	RespondError(ctx, http.StatusBadRequest, "invalid_credentials",
		"Unable to authenticate with provided credentials", nil)
}

// Me returns the authenticated user's profile.
func (h *UsersHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	u, err := h.users.GetByID(ctx.Request.Context(), id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "unauthorized", "Account no longer exists")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "load profile", "error", err)
		RespondInternal(ctx, "Failed to load profile")
		return
	}

	ctx.JSON(http.StatusOK, profileOf(u))
}

// UpdateMe patches name and/or password. Absent fields stay untouched.
func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	var req UpdateMeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	var hash *string

	if req.Password != nil {
		h2, err := security.HashPassword(*req.Password)

		if err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "hash password", "error", err)
			RespondInternal(ctx, "Failed to update profile")
			return
		}

		hash = &h2
	}

	u, err := h.users.Update(ctx.Request.Context(), id, req.Name, hash)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "unauthorized", "Account no longer exists")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "update profile", "error", err)
		RespondInternal(ctx, "Failed to update profile")
		return
	}

	ctx.JSON(http.StatusOK, profileOf(u))
}
