// Package reconcile resolves the embedded tag/ingredient name lists of a
// recipe payload into owned entities and attaches them to the recipe.
package reconcile

import (
	"context"

	"github.com/recipehub/recipehub/internal/domain/recipe"
)

// AttrStore is the get-or-create half of the engine. Both the postgres
// and the in-memory repositories satisfy it.
type AttrStore interface {
	FindIDByName(ctx context.Context, ownerID int64, name string) (int64, bool, error)
	Create(ctx context.Context, ownerID int64, name string) (int64, error)
}

// Linker manages the recipe's association rows for one attribute kind.
// Attach must be idempotent so duplicate names in one input list end up
// attached exactly once.
type Linker interface {
	Attach(ctx context.Context, recipeID, attrID int64) error
	Clear(ctx context.Context, recipeID int64) error
}

type Engine struct {
	store AttrStore
	links Linker
}

func New(store AttrStore, links Linker) *Engine {
	return &Engine{store: store, links: links}
}

// Reconcile walks the specs in input order. An existing (owner, name)
// entity is reused; otherwise one is created for the owner. Entities
// created before a later failure stay persisted: the engine does not
// roll back, it relies on whatever boundary the caller runs under.
func (e *Engine) Reconcile(ctx context.Context, specs []recipe.NameSpec, recipeID, ownerID int64) error {
	for _, spec := range specs {
		id, found, err := e.store.FindIDByName(ctx, ownerID, spec.Name)

		if err != nil {
			return err
		}

		if !found {
			id, err = e.store.Create(ctx, ownerID, spec.Name)

			if err != nil {
				return err
			}
		}

		if err := e.links.Attach(ctx, recipeID, id); err != nil {
			return err
		}
	}

	return nil
}

// Replace clears the recipe's entire set first and then reconciles the
// provided list. An empty list therefore means "remove everything".
func (e *Engine) Replace(ctx context.Context, specs []recipe.NameSpec, recipeID, ownerID int64) error {
	if err := e.links.Clear(ctx, recipeID); err != nil {
		return err
	}

	return e.Reconcile(ctx, specs, recipeID, ownerID)
}
