package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CategoryRepository stores ticket categories. Deletion is soft; Exists and
// List only see live rows.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.TicketCategory) error
	Update(ctx context.Context, category *domain.TicketCategory) error
	GetByID(ctx context.Context, id string) (*domain.TicketCategory, error)
	List(ctx context.Context) ([]domain.TicketCategory, error)
	Exists(ctx context.Context, id string) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}

type categoryRepository struct {
	db DB
}

// NewCategoryRepository builds the repository over a pool or transaction.
func NewCategoryRepository(db DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.TicketCategory) error {
	const query = `
        INSERT INTO ticket_categories (name)
        VALUES ($1)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, category.Name).
		Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.TicketCategory) error {
	const query = `
        UPDATE ticket_categories SET name=$1, is_deleted=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.db.Exec(ctx, query, category.Name, category.IsDeleted, category.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.TicketCategory, error) {
	const query = `
        SELECT id, name, is_deleted, created_at, updated_at
        FROM ticket_categories WHERE id=$1 AND NOT is_deleted`
	var category domain.TicketCategory
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.IsDeleted,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.TicketCategory, error) {
	const query = `
        SELECT id, name, is_deleted, created_at, updated_at
        FROM ticket_categories WHERE NOT is_deleted ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketCategory
	for rows.Next() {
		var category domain.TicketCategory
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.IsDeleted,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM ticket_categories WHERE id=$1 AND NOT is_deleted)`
	var exists bool
	err := r.db.QueryRow(ctx, query, id).Scan(&exists)
	return exists, err
}

func (r *categoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM ticket_categories WHERE LOWER(name)=LOWER($1) AND NOT is_deleted)`
	var exists bool
	err := r.db.QueryRow(ctx, query, name).Scan(&exists)
	return exists, err
}
