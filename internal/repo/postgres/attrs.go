package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/recipehub/recipehub/internal/domain/recipe"
	"github.com/recipehub/recipehub/internal/observability"
)

// AttrsRepo backs both tags and ingredients: the two tables have the
// same shape and the same listing/rename/delete semantics, only the
// table and association-table names differ. Identifiers come from the
// two constructors below, never from request data.
type AttrsRepo struct {
	pool      *pgxpool.Pool
	prom      *observability.Prom
	kind      string // metric label, "tags" or "ingredients"
	table     string
	linkTable string
	linkCol   string
}

func NewTagsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AttrsRepo {
	return &AttrsRepo{
		pool:      pool,
		prom:      prom,
		kind:      "tags",
		table:     "tags",
		linkTable: "recipe_tags",
		linkCol:   "tag_id",
	}
}

func NewIngredientsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AttrsRepo {
	return &AttrsRepo{
		pool:      pool,
		prom:      prom,
		kind:      "ingredients",
		table:     "ingredients",
		linkTable: "recipe_ingredients",
		linkCol:   "ingredient_id",
	}
}

func (r *AttrsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(r.kind+"."+op, fn)
	}

	return fn()
}

func (r *AttrsRepo) FindIDByName(ctx context.Context, ownerID int64, name string) (int64, bool, error) {
	var id int64

	err := r.observe("find_by_name", func() error {
		// oldest match wins when duplicates exist outside the
		// reconciliation path
		return r.pool.QueryRow(ctx,
			fmt.Sprintf(`SELECT id FROM %s WHERE user_id = $1 AND name = $2 ORDER BY id ASC LIMIT 1`, r.table),
			ownerID, name,
		).Scan(&id)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}

		return 0, false, err
	}

	return id, true, nil
}

func (r *AttrsRepo) Create(ctx context.Context, ownerID int64, name string) (int64, error) {
	var id int64

	err := r.observe("create", func() error {
		return r.pool.QueryRow(ctx,
			fmt.Sprintf(`INSERT INTO %s (user_id, name) VALUES ($1, $2) RETURNING id`, r.table),
			ownerID, name,
		).Scan(&id)
	})

	if err != nil {
		return 0, err
	}

	return id, nil
}

// List returns the caller's attrs ordered by descending name. With
// assignedOnly the join goes through the association table without
// constraining the recipe owner: "assigned" means assigned to ANY
// recipe, matching the observed behavior.
func (r *AttrsRepo) List(ctx context.Context, ownerID int64, assignedOnly bool) ([]recipe.OwnedAttr, error) {
	query := fmt.Sprintf(`SELECT DISTINCT t.id, t.name, t.user_id FROM %s t`, r.table)

	if assignedOnly {
		query += fmt.Sprintf(` JOIN %s l ON l.%s = t.id`, r.linkTable, r.linkCol)
	}

	query += ` WHERE t.user_id = $1 ORDER BY t.name DESC, t.id DESC`

	var out []recipe.OwnedAttr

	err := r.observe("list", func() error {
		rows, err := r.pool.Query(ctx, query, ownerID)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]recipe.OwnedAttr, 0)

		for rows.Next() {
			var a recipe.OwnedAttr

			if err := rows.Scan(&a.ID, &a.Name, &a.UserID); err != nil {
				return err
			}

			out = append(out, a)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Rename is owner-scoped: a foreign id behaves as not found.
func (r *AttrsRepo) Rename(ctx context.Context, ownerID, id int64, name string) (recipe.OwnedAttr, error) {
	var a recipe.OwnedAttr

	err := r.observe("rename", func() error {
		return r.pool.QueryRow(ctx,
			fmt.Sprintf(`UPDATE %s SET name = $3 WHERE id = $1 AND user_id = $2 RETURNING id, name, user_id`, r.table),
			id, ownerID, name,
		).Scan(&a.ID, &a.Name, &a.UserID)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recipe.OwnedAttr{}, recipe.ErrAttrNotFound
		}

		return recipe.OwnedAttr{}, err
	}

	return a, nil
}

func (r *AttrsRepo) Delete(ctx context.Context, ownerID, id int64) error {
	var tag pgconn.CommandTag

	err := r.observe("delete", func() error {
		t, e := r.pool.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.table),
			id, ownerID,
		)

		tag = t

		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return recipe.ErrAttrNotFound
	}

	return nil
}

// Attach inserts one association row; re-attaching is a no-op so
// duplicate names in a single reconciliation pass stay idempotent.
func (r *AttrsRepo) Attach(ctx context.Context, recipeID, attrID int64) error {
	return r.observe("attach", func() error {
		_, err := r.pool.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (recipe_id, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, r.linkTable, r.linkCol),
			recipeID, attrID,
		)

		return err
	})
}

func (r *AttrsRepo) Clear(ctx context.Context, recipeID int64) error {
	return r.observe("clear", func() error {
		_, err := r.pool.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE recipe_id = $1`, r.linkTable),
			recipeID,
		)

		return err
	})
}
