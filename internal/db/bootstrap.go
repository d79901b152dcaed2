package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Idempotent schema bootstrap. Single script, IF NOT EXISTS throughout,
// so repeated startups are safe. Association tables cascade on both
// ends: deleting a recipe removes membership rows only, the tag and
// ingredient rows themselves survive.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'user',
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS recipes (
	id               BIGSERIAL PRIMARY KEY,
	user_id          BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title            TEXT NOT NULL,
	times_in_minutes INTEGER NOT NULL,
	price            NUMERIC(5,2) NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	link             TEXT NOT NULL DEFAULT '',
	image            TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tags (
	id      BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ingredients (
	id      BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recipe_tags (
	recipe_id BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	tag_id    BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (recipe_id, tag_id)
);

CREATE TABLE IF NOT EXISTS recipe_ingredients (
	recipe_id     BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	ingredient_id BIGINT NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
	PRIMARY KEY (recipe_id, ingredient_id)
);

CREATE INDEX IF NOT EXISTS idx_recipes_user_id ON recipes(user_id);
CREATE INDEX IF NOT EXISTS idx_tags_user_name ON tags(user_id, name);
CREATE INDEX IF NOT EXISTS idx_ingredients_user_name ON ingredients(user_id, name);
`

// Bootstrap applies the schema statement by statement. pgx's extended
// protocol rejects multi-statement strings, hence the split.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)

		if stmt == "" {
			continue
		}

		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
