package recipe

import (
	"errors"
	"regexp"
	"time"
)

type Recipe struct {
	ID             int64        `json:"id"`
	UserID         int64        `json:"-"`
	Title          string       `json:"title"`
	TimesInMinutes int          `json:"times_in_minutes"`
	Price          string       `json:"price"`
	Description    string       `json:"description"`
	Link           string       `json:"link"`
	Image          *string      `json:"image"`
	Tags           []Tag        `json:"tags"`
	Ingredients    []Ingredient `json:"ingredients"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// String renders the recipe's display form.
func (r Recipe) String() string {
	return r.Title
}

// Summary is the lightweight list-view shape; detail-only fields
// (description, image, attached sets) are left out on purpose.
type Summary struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	TimesInMinutes int    `json:"times_in_minutes"`
	Price          string `json:"price"`
	Link           string `json:"link"`
}

var ErrNotFound = errors.New("recipe not found")

type CreateRecipeRequest struct {
	Title          string     `json:"title" binding:"required,min=1,max=255"`
	TimesInMinutes int        `json:"times_in_minutes" binding:"required,min=1"`
	Price          string     `json:"price" binding:"required"`
	Description    string     `json:"description" binding:"omitempty"`
	Link           string     `json:"link" binding:"omitempty,max=255"`
	Tags           []NameSpec `json:"tags" binding:"omitempty,dive"`
	Ingredients    []NameSpec `json:"ingredients" binding:"omitempty,dive"`
}

// UpdateRecipeRequest uses pointers throughout because presence matters:
// a nil Tags leaves the attached set untouched, while a pointer to an
// empty list clears it. The same rule applies to Ingredients.
type UpdateRecipeRequest struct {
	Title          *string     `json:"title" binding:"omitempty,min=1,max=255"`
	TimesInMinutes *int        `json:"times_in_minutes" binding:"omitempty,min=1"`
	Price          *string     `json:"price"`
	Description    *string     `json:"description"`
	Link           *string     `json:"link" binding:"omitempty,max=255"`
	Tags           *[]NameSpec `json:"tags" binding:"omitempty,dive"`
	Ingredients    *[]NameSpec `json:"ingredients" binding:"omitempty,dive"`
}

// HasScalarChanges reports whether any non-association field was sent.
func (r UpdateRecipeRequest) HasScalarChanges() bool {
	return r.Title != nil || r.TimesInMinutes != nil || r.Price != nil ||
		r.Description != nil || r.Link != nil
}

// NUMERIC(5,2): up to three integer digits and up to two fraction digits.
var priceRe = regexp.MustCompile(`^\d{1,3}(\.\d{1,2})?$`)

func ValidPrice(price string) bool {
	return priceRe.MatchString(price)
}
