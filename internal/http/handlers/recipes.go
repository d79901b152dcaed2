package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/recipehub/recipehub/internal/cache"
	"github.com/recipehub/recipehub/internal/domain/recipe"
	"github.com/recipehub/recipehub/internal/http/middlewares"
	"github.com/recipehub/recipehub/internal/media"
	"github.com/recipehub/recipehub/internal/utils"
)

type RecipeStore interface {
	Create(ctx context.Context, ownerID int64, req recipe.CreateRecipeRequest) (recipe.Recipe, error)
	GetByID(ctx context.Context, ownerID, id int64) (recipe.Recipe, error)
	List(ctx context.Context, ownerID int64, tagIDs, ingredientIDs []int64) ([]recipe.Summary, error)
	UpdateScalars(ctx context.Context, ownerID, id int64, req recipe.UpdateRecipeRequest) error
	SetImage(ctx context.Context, ownerID, id int64, imagePath string) error
	Delete(ctx context.Context, ownerID, id int64) error
}

// Reconciler resolves embedded name lists into owned entities attached
// to a recipe. One instance per attribute kind.
type Reconciler interface {
	Reconcile(ctx context.Context, specs []recipe.NameSpec, recipeID, ownerID int64) error
	Replace(ctx context.Context, specs []recipe.NameSpec, recipeID, ownerID int64) error
}

type ImageSaver interface {
	SaveRecipeImage(data []byte) (string, error)
}

type RecipesHandler struct {
	recipes     RecipeStore
	tags        Reconciler
	ingredients Reconciler
	images      ImageSaver
	cache       cache.Cache // nil disables list caching
	log         *slog.Logger
}

func NewRecipesHandler(recipes RecipeStore, tags, ingredients Reconciler, images ImageSaver, c cache.Cache, log *slog.Logger) *RecipesHandler {
	return &RecipesHandler{
		recipes:     recipes,
		tags:        tags,
		ingredients: ingredients,
		images:      images,
		cache:       c,
		log:         log,
	}
}

// recipeID pulls the :id path param. A malformed id is treated like an
// id that matches nothing.
func recipeID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)

	if err != nil || id <= 0 {
		RespondNotFound(ctx, "Recipe not found")
		return 0, false
	}

	return id, true
}

func invalidPriceDetails() interface{} {
	return gin.H{
		"fields": []FieldError{
			{Field: "price", Rule: "decimal", Message: "must have at most 3 digits before and 2 after the decimal point"},
		},
	}
}

func (h *RecipesHandler) listPrefix(ownerID int64) string {
	return "recipes:" + strconv.FormatInt(ownerID, 10) + ":"
}

func (h *RecipesHandler) invalidateLists(ctx context.Context, ownerID int64) {
	if h.cache != nil {
		h.cache.DeletePrefix(ctx, h.listPrefix(ownerID))
	}
}

// Create stores a recipe owned by the caller. Tag and ingredient name
// lists are reconciled in order: existing (owner, name) entities are
// reused, missing ones created.
func (h *RecipesHandler) Create(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	var req recipe.CreateRecipeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !recipe.ValidPrice(req.Price) {
		RespondBadRequest(ctx, "Invalid request body", invalidPriceDetails())
		return
	}

	rec, err := h.recipes.Create(ctx.Request.Context(), ownerID, req)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "create recipe", "error", err)
		RespondInternal(ctx, "Failed to create recipe")
		return
	}

	if err := h.tags.Reconcile(ctx.Request.Context(), req.Tags, rec.ID, ownerID); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "reconcile tags", "recipe_id", rec.ID, "error", err)
		RespondInternal(ctx, "Failed to create recipe")
		return
	}

	if err := h.ingredients.Reconcile(ctx.Request.Context(), req.Ingredients, rec.ID, ownerID); err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "reconcile ingredients", "recipe_id", rec.ID, "error", err)
		RespondInternal(ctx, "Failed to create recipe")
		return
	}

	out, err := h.recipes.GetByID(ctx.Request.Context(), ownerID, rec.ID)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "reload recipe", "recipe_id", rec.ID, "error", err)
		RespondInternal(ctx, "Failed to create recipe")
		return
	}

	h.invalidateLists(ctx.Request.Context(), ownerID)

	ctx.JSON(http.StatusCreated, out)
}

// List returns the caller's recipes, newest first. The optional tags
// and ingredients query params each carry a comma-separated id list;
// both filters together narrow the result, the ids inside one widen it.
func (h *RecipesHandler) List(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	tagIDs, err := utils.ParamsToInts(ctx.Query("tags"))

	if err != nil {
		RespondBadRequest(ctx, "Invalid tags filter", gin.H{"reason": err.Error()})
		return
	}

	ingredientIDs, err := utils.ParamsToInts(ctx.Query("ingredients"))

	if err != nil {
		RespondBadRequest(ctx, "Invalid ingredients filter", gin.H{"reason": err.Error()})
		return
	}

	key := h.listPrefix(ownerID) + "tags=" + ctx.Query("tags") + "&ingredients=" + ctx.Query("ingredients")

	if h.cache != nil {
		if body, ok := h.cache.Get(ctx.Request.Context(), key); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		}
	}

	out, err := h.recipes.List(ctx.Request.Context(), ownerID, tagIDs, ingredientIDs)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list recipes", "error", err)
		RespondInternal(ctx, "Failed to list recipes")
		return
	}

	body, err := json.Marshal(out)

	if err != nil {
		RespondInternal(ctx, "Failed to encode response")
		return
	}

	if h.cache != nil {
		h.cache.Set(ctx.Request.Context(), key, body)
	}

	ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *RecipesHandler) Get(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	id, ok := recipeID(ctx)

	if !ok {
		return
	}

	rec, err := h.recipes.GetByID(ctx.Request.Context(), ownerID, id)

	if err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			RespondNotFound(ctx, "Recipe not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "get recipe", "recipe_id", id, "error", err)
		RespondInternal(ctx, "Failed to load recipe")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, rec)
}

// Update applies a partial mutation. Scalar fields follow the usual
// COALESCE patch rules. The tags and ingredients lists are
// presence-sensitive: an absent list leaves the attached set alone, a
// present list (including an empty one) replaces it wholesale.
func (h *RecipesHandler) Update(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	id, ok := recipeID(ctx)

	if !ok {
		return
	}

	var req recipe.UpdateRecipeRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Price != nil && !recipe.ValidPrice(*req.Price) {
		RespondBadRequest(ctx, "Invalid request body", invalidPriceDetails())
		return
	}

	// Ownership gate before any write: a foreign or missing recipe is a
	// plain 404 without side effects.
	if _, err := h.recipes.GetByID(ctx.Request.Context(), ownerID, id); err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			RespondNotFound(ctx, "Recipe not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "get recipe", "recipe_id", id, "error", err)
		RespondInternal(ctx, "Failed to update recipe")
		return
	}

	if req.HasScalarChanges() {
		if err := h.recipes.UpdateScalars(ctx.Request.Context(), ownerID, id, req); err != nil {
			if errors.Is(err, recipe.ErrNotFound) {
				RespondNotFound(ctx, "Recipe not found")
				return
			}

			h.log.ErrorContext(ctx.Request.Context(), "update recipe", "recipe_id", id, "error", err)
			RespondInternal(ctx, "Failed to update recipe")
			return
		}
	}

	if req.Tags != nil {
		if err := h.tags.Replace(ctx.Request.Context(), *req.Tags, id, ownerID); err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "replace tags", "recipe_id", id, "error", err)
			RespondInternal(ctx, "Failed to update recipe")
			return
		}
	}

	if req.Ingredients != nil {
		if err := h.ingredients.Replace(ctx.Request.Context(), *req.Ingredients, id, ownerID); err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "replace ingredients", "recipe_id", id, "error", err)
			RespondInternal(ctx, "Failed to update recipe")
			return
		}
	}

	out, err := h.recipes.GetByID(ctx.Request.Context(), ownerID, id)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "reload recipe", "recipe_id", id, "error", err)
		RespondInternal(ctx, "Failed to update recipe")
		return
	}

	h.invalidateLists(ctx.Request.Context(), ownerID)

	ctx.JSON(http.StatusOK, out)
}

func (h *RecipesHandler) Delete(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	id, ok := recipeID(ctx)

	if !ok {
		return
	}

	err := h.recipes.Delete(ctx.Request.Context(), ownerID, id)

	if err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			RespondNotFound(ctx, "Recipe not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "delete recipe", "recipe_id", id, "error", err)
		RespondInternal(ctx, "Failed to delete recipe")
		return
	}

	h.invalidateLists(ctx.Request.Context(), ownerID)

	ctx.Status(http.StatusNoContent)
}

// UploadImage accepts a multipart form with an "image" part, validates
// the bytes decode as an image, and swaps the recipe's stored path.
func (h *RecipesHandler) UploadImage(ctx *gin.Context) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authentication context")
		return
	}

	id, ok := recipeID(ctx)

	if !ok {
		return
	}

	// Resolve ownership before touching storage so a foreign or missing
	// id cannot leave an orphaned file behind.
	if _, err := h.recipes.GetByID(ctx.Request.Context(), ownerID, id); err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			RespondNotFound(ctx, "Recipe not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "get recipe", "recipe_id", id, "error", err)
		RespondInternal(ctx, "Failed to store image")
		return
	}

	fileHeader, err := ctx.FormFile("image")

	if err != nil {
		RespondBadRequest(ctx, "Missing image file", gin.H{
			"fields": []FieldError{
				{Field: "image", Rule: "required", Message: "is required"},
			},
		})
		return
	}

	f, err := fileHeader.Open()

	if err != nil {
		RespondBadRequest(ctx, "Unreadable image file", nil)
		return
	}

	defer f.Close()

	data, err := io.ReadAll(f)

	if err != nil {
		RespondBadRequest(ctx, "Unreadable image file", nil)
		return
	}

	path, err := h.images.SaveRecipeImage(data)

	if err != nil {
		if errors.Is(err, media.ErrNotImage) {
			RespondBadRequest(ctx, "Invalid request body", gin.H{
				"fields": []FieldError{
					{Field: "image", Rule: "image", Message: "must be a valid image file"},
				},
			})
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "save image", "recipe_id", id, "error", err)
		RespondInternal(ctx, "Failed to store image")
		return
	}

	if err := h.recipes.SetImage(ctx.Request.Context(), ownerID, id, path); err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			RespondNotFound(ctx, "Recipe not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "set image", "recipe_id", id, "error", err)
		RespondInternal(ctx, "Failed to store image")
		return
	}

	h.invalidateLists(ctx.Request.Context(), ownerID)

	ctx.JSON(http.StatusOK, gin.H{"id": id, "image": path})
}
