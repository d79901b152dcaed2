package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/recipehub/recipehub/internal/domain/recipe"
	"github.com/recipehub/recipehub/internal/http/middlewares"
)

// AttrStore is the handler-facing slice of the shared tags/ingredients
// repository. Entities are only ever created through recipe payloads,
// so there is no Create here.
type AttrStore interface {
	List(ctx context.Context, ownerID int64, assignedOnly bool) ([]recipe.OwnedAttr, error)
	Rename(ctx context.Context, ownerID, id int64, name string) (recipe.OwnedAttr, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

// AttrsHandler serves both /tags and /ingredients; the two routes get
// separate instances over separate stores.
type AttrsHandler struct {
	store AttrStore
	kind  string // "tag" or "ingredient", for messages and logs
	log   *slog.Logger
}

func NewAttrsHandler(store AttrStore, kind string, log *slog.Logger) *AttrsHandler {
	return &AttrsHandler{store: store, kind: kind, log: log}
}

func (h *AttrsHandler) notFoundMessage() string {
	return strings.ToUpper(h.kind[:1]) + h.kind[1:] + " not found"
}

// List returns the caller's attributes by descending name. With
// assigned_only=1 only attributes attached to at least one recipe come
// back.
func (h *AttrsHandler) List(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	assignedOnly := false

	if raw := ctx.Query("assigned_only"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil {
			RespondBadRequest(ctx, "Invalid assigned_only value", gin.H{
				"fields": []FieldError{
					{Field: "assigned_only", Rule: "numeric", Message: "must be 0 or 1"},
				},
			})
			return
		}

		assignedOnly = n != 0
	}

	out, err := h.store.List(ctx.Request.Context(), ownerID, assignedOnly)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list "+h.kind+"s", "error", err)
		RespondInternal(ctx, "Failed to list "+h.kind+"s")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, out)
}

func (h *AttrsHandler) attrID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)

	if err != nil || id <= 0 {
		RespondNotFound(ctx, h.notFoundMessage())
		return 0, false
	}

	return id, true
}

func (h *AttrsHandler) Rename(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	id, ok := h.attrID(ctx)

	if !ok {
		return
	}

	var req recipe.RenameAttrRequest

	if !BindJSON(ctx, &req) {
		return
	}

	out, err := h.store.Rename(ctx.Request.Context(), ownerID, id, req.Name)

	if err != nil {
		if errors.Is(err, recipe.ErrAttrNotFound) {
			RespondNotFound(ctx, h.notFoundMessage())
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "rename "+h.kind, "id", id, "error", err)
		RespondInternal(ctx, "Failed to update "+h.kind)
		return
	}

	ctx.JSON(http.StatusOK, out)
}

func (h *AttrsHandler) Delete(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	id, ok := h.attrID(ctx)

	if !ok {
		return
	}

	err := h.store.Delete(ctx.Request.Context(), ownerID, id)

	if err != nil {
		if errors.Is(err, recipe.ErrAttrNotFound) {
			RespondNotFound(ctx, h.notFoundMessage())
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "delete "+h.kind, "id", id, "error", err)
		RespondInternal(ctx, "Failed to delete "+h.kind)
		return
	}

	ctx.Status(http.StatusNoContent)
}
