package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/recipehub/recipehub/internal/domain/recipe"
	"github.com/recipehub/recipehub/internal/observability"
)

type RecipesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRecipesRepo(pool *pgxpool.Pool, prom *observability.Prom) *RecipesRepo {
	return &RecipesRepo{pool: pool, prom: prom}
}

func (r *RecipesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}

	return fn()
}

func (r *RecipesRepo) Create(ctx context.Context, ownerID int64, req recipe.CreateRecipeRequest) (recipe.Recipe, error) {
	rec := recipe.Recipe{
		UserID:         ownerID,
		Title:          req.Title,
		TimesInMinutes: req.TimesInMinutes,
		Price:          req.Price,
		Description:    req.Description,
		Link:           req.Link,
		Tags:           []recipe.Tag{},
		Ingredients:    []recipe.Ingredient{},
	}

	err := r.observe("recipes.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO recipes (user_id, title, times_in_minutes, price, description, link)
			 VALUES ($1, $2, $3, $4::numeric(5,2), $5, $6)
			 RETURNING id, price::text, created_at, updated_at`,
			ownerID, req.Title, req.TimesInMinutes, req.Price, req.Description, req.Link,
		).Scan(&rec.ID, &rec.Price, &rec.CreatedAt, &rec.UpdatedAt)
	})

	if err != nil {
		return recipe.Recipe{}, err
	}

	return rec, nil
}

// GetByID is owner-scoped: somebody else's recipe id is
// indistinguishable from a missing one.
func (r *RecipesRepo) GetByID(ctx context.Context, ownerID, id int64) (recipe.Recipe, error) {
	var rec recipe.Recipe

	err := r.observe("recipes.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, user_id, title, times_in_minutes, price::text, description, link, image, created_at, updated_at
			 FROM recipes
			 WHERE id = $1 AND user_id = $2`,
			id, ownerID,
		).Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Title,
			&rec.TimesInMinutes,
			&rec.Price,
			&rec.Description,
			&rec.Link,
			&rec.Image,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recipe.Recipe{}, recipe.ErrNotFound
		}

		return recipe.Recipe{}, err
	}

	if err := r.loadAttrs(ctx, &rec); err != nil {
		return recipe.Recipe{}, err
	}

	return rec, nil
}

func (r *RecipesRepo) loadAttrs(ctx context.Context, rec *recipe.Recipe) error {
	rec.Tags = []recipe.Tag{}
	rec.Ingredients = []recipe.Ingredient{}

	err := r.observe("recipes.load_tags", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT t.id, t.name, t.user_id
			 FROM tags t
			 JOIN recipe_tags rt ON rt.tag_id = t.id
			 WHERE rt.recipe_id = $1
			 ORDER BY t.name DESC, t.id DESC`,
			rec.ID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var t recipe.Tag

			if err := rows.Scan(&t.ID, &t.Name, &t.UserID); err != nil {
				return err
			}

			rec.Tags = append(rec.Tags, t)
		}

		return rows.Err()
	})

	if err != nil {
		return err
	}

	return r.observe("recipes.load_ingredients", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT i.id, i.name, i.user_id
			 FROM ingredients i
			 JOIN recipe_ingredients ri ON ri.ingredient_id = i.id
			 WHERE ri.recipe_id = $1
			 ORDER BY i.name DESC, i.id DESC`,
			rec.ID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var ing recipe.Ingredient

			if err := rows.Scan(&ing.ID, &ing.Name, &ing.UserID); err != nil {
				return err
			}

			rec.Ingredients = append(rec.Ingredients, ing)
		}

		return rows.Err()
	})
}

// List returns the caller's recipes, newest id first. The two optional
// id-set filters are ANDed together while each one is an OR over its
// ids; DISTINCT collapses the join fan-out so a recipe matching several
// filter ids shows up once.
func (r *RecipesRepo) List(ctx context.Context, ownerID int64, tagIDs, ingredientIDs []int64) ([]recipe.Summary, error) {
	baseQuery := `SELECT DISTINCT r.id, r.title, r.times_in_minutes, r.price::text, r.link FROM recipes r`

	var joins []string
	conds := []string{"r.user_id = $1"}
	args := []interface{}{ownerID}

	argsPosition := 2

	if len(tagIDs) > 0 {
		joins = append(joins, "JOIN recipe_tags rt ON rt.recipe_id = r.id")
		conds = append(conds, fmt.Sprintf("rt.tag_id = ANY($%d)", argsPosition))
		args = append(args, tagIDs)
		argsPosition++
	}

	if len(ingredientIDs) > 0 {
		joins = append(joins, "JOIN recipe_ingredients ri ON ri.recipe_id = r.id")
		conds = append(conds, fmt.Sprintf("ri.ingredient_id = ANY($%d)", argsPosition))
		args = append(args, ingredientIDs)
		argsPosition++
	}

	query := baseQuery

	if len(joins) > 0 {
		query += " " + strings.Join(joins, " ")
	}

	query += " WHERE " + strings.Join(conds, " AND ")
	query += " ORDER BY r.id DESC"

	var out []recipe.Summary

	err := r.observe("recipes.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]recipe.Summary, 0)

		for rows.Next() {
			var s recipe.Summary

			if err := rows.Scan(&s.ID, &s.Title, &s.TimesInMinutes, &s.Price, &s.Link); err != nil {
				return err
			}

			out = append(out, s)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// UpdateScalars applies the non-association fields of a partial update.
// The owner column is deliberately not part of the SET list: payloads
// cannot reassign a recipe to another user.
func (r *RecipesRepo) UpdateScalars(ctx context.Context, ownerID, id int64, req recipe.UpdateRecipeRequest) error {
	var tag int64

	err := r.observe("recipes.update", func() error {
		t, e := r.pool.Exec(ctx,
			`UPDATE recipes
			 SET title = COALESCE($3, title),
			     times_in_minutes = COALESCE($4, times_in_minutes),
			     price = COALESCE($5::numeric(5,2), price),
			     description = COALESCE($6, description),
			     link = COALESCE($7, link),
			     updated_at = NOW()
			 WHERE id = $1 AND user_id = $2`,
			id, ownerID, req.Title, req.TimesInMinutes, req.Price, req.Description, req.Link,
		)

		tag = t.RowsAffected()

		return e
	})

	if err != nil {
		return err
	}

	if tag == 0 {
		return recipe.ErrNotFound
	}

	return nil
}

func (r *RecipesRepo) SetImage(ctx context.Context, ownerID, id int64, imagePath string) error {
	var affected int64

	err := r.observe("recipes.set_image", func() error {
		t, e := r.pool.Exec(ctx,
			`UPDATE recipes SET image = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
			id, ownerID, imagePath,
		)

		affected = t.RowsAffected()

		return e
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return recipe.ErrNotFound
	}

	return nil
}

// Delete removes the recipe row; the association rows go with it via
// ON DELETE CASCADE, the tag/ingredient entities themselves stay.
func (r *RecipesRepo) Delete(ctx context.Context, ownerID, id int64) error {
	var affected int64

	err := r.observe("recipes.delete", func() error {
		t, e := r.pool.Exec(ctx,
			`DELETE FROM recipes WHERE id = $1 AND user_id = $2`,
			id, ownerID,
		)

		affected = t.RowsAffected()

		return e
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return recipe.ErrNotFound
	}

	return nil
}
