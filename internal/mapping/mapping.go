// Package mapping maintains the header mapping rules and the global
// variable-exclusion list, and resolves incoming headers against them.
//
// A rule rewrites an original header to a mapped header within a scope:
// a specific vendor, a specific client, both, or globally. Resolution picks
// the most specific applicable rule. All header text is folded to upper case
// on the way in and out.
package mapping

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgx operations the store needs. Satisfied by
// *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Rule maps an original header to a mapped header within a scope. Empty
// Vendor/Client means the rule applies to all vendors/clients. The natural
// key is (Original, Vendor, Client).
type Rule struct {
	Original string `json:"original"`
	Mapped   string `json:"mapped"`
	Vendor   string `json:"vendor,omitempty"`
	Client   string `json:"client,omitempty"`
}

// normalize upper-cases the header fields and trims scope values.
func (r Rule) normalize() Rule {
	r.Original = strings.ToUpper(strings.TrimSpace(r.Original))
	r.Mapped = strings.ToUpper(strings.TrimSpace(r.Mapped))
	r.Vendor = strings.TrimSpace(r.Vendor)
	r.Client = strings.TrimSpace(r.Client)
	return r
}

// Exclusion is a header name that is removed from every dataset before
// mapping resolution.
type Exclusion struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Store persists mapping rules and exclusions.
type Store struct {
	db DB
}

// NewStore creates a Store backed by the given database.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the mapping tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS header_mappings (
	original_header VARCHAR(200) NOT NULL,
	mapped_header   VARCHAR(200) NOT NULL,
	vendor_scope    VARCHAR(100) NOT NULL DEFAULT '',
	client_scope    VARCHAR(100) NOT NULL DEFAULT '',
	PRIMARY KEY (original_header, vendor_scope, client_scope)
);
CREATE TABLE IF NOT EXISTS variable_exclusions (
	name        VARCHAR(200) PRIMARY KEY,
	description VARCHAR(500) NOT NULL DEFAULT ''
);`
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure mapping schema: %w", err)
	}
	return nil
}

// ListRules returns rules matching the optional vendor/client filter. An
// empty filter value matches every scope; a set value also returns global
// rules so callers see the full resolution surface for that scope.
func (s *Store) ListRules(ctx context.Context, vendor, client string) ([]Rule, error) {
	query := `SELECT original_header, mapped_header, vendor_scope, client_scope
		FROM header_mappings`
	var args []any
	var conds []string
	if vendor != "" {
		args = append(args, vendor)
		conds = append(conds, fmt.Sprintf("(vendor_scope = $%d OR vendor_scope = '')", len(args)))
	}
	if client != "" {
		args = append(args, client)
		conds = append(conds, fmt.Sprintf("(client_scope = $%d OR client_scope = '')", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY original_header, vendor_scope, client_scope"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list header mappings: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.Original, &r.Mapped, &r.Vendor, &r.Client); err != nil {
			return nil, fmt.Errorf("scan header mapping: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// SaveRules upserts the given rules by natural key and returns the count
// written. Upserting an existing key replaces its mapped header.
func (s *Store) SaveRules(ctx context.Context, rules []Rule) (int, error) {
	saved := 0
	for _, r := range rules {
		r = r.normalize()
		if r.Original == "" || r.Mapped == "" {
			return saved, fmt.Errorf("mapping rule requires original and mapped headers")
		}
		_, err := s.db.Exec(ctx, `
			INSERT INTO header_mappings (original_header, mapped_header, vendor_scope, client_scope)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (original_header, vendor_scope, client_scope)
			DO UPDATE SET mapped_header = EXCLUDED.mapped_header`,
			r.Original, r.Mapped, r.Vendor, r.Client)
		if err != nil {
			return saved, fmt.Errorf("save mapping %s: %w", r.Original, err)
		}
		saved++
	}
	return saved, nil
}

// DeleteRule removes a rule by natural key.
func (s *Store) DeleteRule(ctx context.Context, original, vendor, client string) error {
	original = strings.ToUpper(strings.TrimSpace(original))
	tag, err := s.db.Exec(ctx, `
		DELETE FROM header_mappings
		WHERE original_header = $1 AND vendor_scope = $2 AND client_scope = $3`,
		original, strings.TrimSpace(vendor), strings.TrimSpace(client))
	if err != nil {
		return fmt.Errorf("delete mapping %s: %w", original, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mapping not found: %s", original)
	}
	return nil
}

// ListExclusions returns every variable exclusion.
func (s *Store) ListExclusions(ctx context.Context) ([]Exclusion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, description FROM variable_exclusions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()

	var out []Exclusion
	for rows.Next() {
		var e Exclusion
		if err := rows.Scan(&e.Name, &e.Description); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExclusionSet returns the exclusion names as an upper-cased lookup set.
func (s *Store) ExclusionSet(ctx context.Context) (map[string]bool, error) {
	excl, err := s.ListExclusions(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(excl))
	for _, e := range excl {
		set[strings.ToUpper(e.Name)] = true
	}
	return set, nil
}

// SaveExclusion inserts or updates an exclusion.
func (s *Store) SaveExclusion(ctx context.Context, e Exclusion) error {
	name := strings.ToUpper(strings.TrimSpace(e.Name))
	if name == "" {
		return fmt.Errorf("exclusion name is required")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO variable_exclusions (name, description) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description`,
		name, strings.TrimSpace(e.Description))
	if err != nil {
		return fmt.Errorf("save exclusion %s: %w", name, err)
	}
	return nil
}

// DeleteExclusion removes an exclusion by name.
func (s *Store) DeleteExclusion(ctx context.Context, name string) error {
	name = strings.ToUpper(strings.TrimSpace(name))
	tag, err := s.db.Exec(ctx, `DELETE FROM variable_exclusions WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete exclusion %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exclusion not found: %s", name)
	}
	return nil
}
