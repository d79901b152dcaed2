package recipe

import "errors"

// Tag and Ingredient have the same shape but are distinct entity types
// living in distinct tables. OwnedAttr is the common row shape the
// shared repository and handlers work with.

type Tag struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID int64  `json:"-"`
}

func (t Tag) String() string { return t.Name }

type Ingredient struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID int64  `json:"-"`
}

func (i Ingredient) String() string { return i.Name }

type OwnedAttr struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID int64  `json:"-"`
}

var ErrAttrNotFound = errors.New("attribute not found")

// NameSpec is one entry of the embedded tag/ingredient lists on a
// recipe payload.
type NameSpec struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

type RenameAttrRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}
