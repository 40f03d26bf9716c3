package business

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
)

type pgxDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores business records in the relational database.
type PostgresRepository struct {
	db pgxDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("business: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB injects any pgx-compatible querier, used by
// tests with a mock pool.
func NewPostgresRepositoryWithDB(db pgxDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts or replaces the record for its slug.
func (r *PostgresRepository) Upsert(ctx context.Context, b *Business) (*Business, error) {
	services, err := json.Marshal(b.Services)
	if err != nil {
		return nil, fmt.Errorf("business: marshal services: %w", err)
	}
	faq, err := json.Marshal(b.FAQ)
	if err != nil {
		return nil, fmt.Errorf("business: marshal faq: %w", err)
	}
	hours, err := json.Marshal(b.Hours)
	if err != nil {
		return nil, fmt.Errorf("business: marshal hours: %w", err)
	}
	rules, err := json.Marshal(b.Rules)
	if err != nil {
		return nil, fmt.Errorf("business: marshal rules: %w", err)
	}

	query := `
		INSERT INTO businesses (slug, name, description, address, map_url, business_type,
		                        contact_email, timezone, services, faq, hours, rules)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			address = EXCLUDED.address,
			map_url = EXCLUDED.map_url,
			business_type = EXCLUDED.business_type,
			contact_email = EXCLUDED.contact_email,
			timezone = EXCLUDED.timezone,
			services = EXCLUDED.services,
			faq = EXCLUDED.faq,
			hours = EXCLUDED.hours,
			rules = EXCLUDED.rules,
			updated_at = now()
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		b.Slug,
		b.Name,
		b.Description,
		b.Address,
		b.MapURL,
		b.BusinessType,
		b.ContactEmail,
		b.Timezone,
		services,
		faq,
		hours,
		rules,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("business: upsert failed: %w", err)
	}

	stored := *b
	stored.CreatedAt = createdAt
	stored.UpdatedAt = updatedAt
	return &stored, nil
}

// GetBySlug fetches a record by slug.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Business, error) {
	query := `
		SELECT slug, name, description, address, map_url, business_type,
		       contact_email, timezone, services, faq, hours, rules,
		       created_at, updated_at
		FROM businesses
		WHERE slug = $1
	`
	row := r.db.QueryRow(ctx, query, slug)
	b, err := scanBusiness(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("business: select failed: %w", err)
	}
	return b, nil
}

// List returns all records ordered by slug.
func (r *PostgresRepository) List(ctx context.Context) ([]*Business, error) {
	query := `
		SELECT slug, name, description, address, map_url, business_type,
		       contact_email, timezone, services, faq, hours, rules,
		       created_at, updated_at
		FROM businesses
		ORDER BY slug
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("business: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("business: scan failed: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("business: iterate failed: %w", err)
	}
	return out, nil
}

func scanBusiness(row pgx.Row) (*Business, error) {
	var (
		b        Business
		services []byte
		faq      []byte
		hours    []byte
		rules    []byte
	)
	if err := row.Scan(
		&b.Slug,
		&b.Name,
		&b.Description,
		&b.Address,
		&b.MapURL,
		&b.BusinessType,
		&b.ContactEmail,
		&b.Timezone,
		&services,
		&faq,
		&hours,
		&rules,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(services) > 0 {
		if err := json.Unmarshal(services, &b.Services); err != nil {
			return nil, fmt.Errorf("decode services: %w", err)
		}
	}
	if len(faq) > 0 {
		if err := json.Unmarshal(faq, &b.FAQ); err != nil {
			return nil, fmt.Errorf("decode faq: %w", err)
		}
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &b.Hours); err != nil {
			return nil, fmt.Errorf("decode hours: %w", err)
		}
	}
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &b.Rules); err != nil {
			return nil, fmt.Errorf("decode rules: %w", err)
		}
	}
	if b.Services == nil {
		b.Services = []knowledge.Service{}
	}
	return &b, nil
}
