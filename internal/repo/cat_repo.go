package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/model"
	"github.com/animalportal/server/internal/pagination"
)

// CatSearchColumns are the columns the list search matches against.
var CatSearchColumns = []string{"name", "tag_number", "microchip_no", "breed", "colour", "suburb"}

// CatSortableFields are the fields the list endpoint may order by.
var CatSortableFields = []string{"created_at", "updated_at", "name", "tag_number", "breed"}

// CatRepo defines the interface for cat repository operations
type CatRepo interface {
	Create(ctx context.Context, cat model.Cat) (model.Cat, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Cat, error)
	GetByTagNumber(ctx context.Context, tagNumber string) (model.Cat, error)
	List(ctx context.Context, p pagination.Params) ([]model.Cat, int, error)
	Update(ctx context.Context, cat model.Cat) (model.Cat, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type catRepo struct {
	db *sql.DB
}

// NewCatRepo creates a new CatRepo instance
func NewCatRepo(database *sql.DB) CatRepo {
	return &catRepo{db: database}
}

const catColumns = `id, name, tag_number, microchip_no, breed, colour, markings, sex,
	birth_year, suburb, desexed, registration_date, owner_id, created_at, updated_at`

func scanCatRow(scan func(dest ...interface{}) error) (model.Cat, error) {
	var c model.Cat
	err := scan(
		&c.ID, &c.Name, &c.TagNumber, &c.MicrochipNo, &c.Breed, &c.Colour,
		&c.Markings, &c.Sex, &c.BirthYear, &c.Suburb, &c.Desexed,
		&c.RegistrationDate, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return model.Cat{}, db.Classify(err)
	}
	return c, nil
}

// Create inserts a cat; a duplicate tag number surfaces as db.ErrUniqueViolation.
func (r *catRepo) Create(ctx context.Context, cat model.Cat) (model.Cat, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO cats (name, tag_number, microchip_no, breed, colour, markings,
			sex, birth_year, suburb, desexed, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+catColumns+`
	`, cat.Name, cat.TagNumber, cat.MicrochipNo, cat.Breed, cat.Colour, cat.Markings,
		cat.Sex, cat.BirthYear, cat.Suburb, cat.Desexed, cat.OwnerID)
	created, err := scanCatRow(row.Scan)
	if err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return model.Cat{}, err
		}
		return model.Cat{}, fmt.Errorf("insert cat: %w", err)
	}
	return created, nil
}

// GetByID retrieves a cat by ID
func (r *catRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Cat, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+catColumns+` FROM cats WHERE id = $1`, id)
	cat, err := scanCatRow(row.Scan)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Cat{}, err
		}
		return model.Cat{}, fmt.Errorf("query cat: %w", err)
	}
	return cat, nil
}

// GetByTagNumber retrieves a cat by its unique tag number
func (r *catRepo) GetByTagNumber(ctx context.Context, tagNumber string) (model.Cat, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+catColumns+` FROM cats WHERE tag_number = $1`, tagNumber)
	cat, err := scanCatRow(row.Scan)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Cat{}, err
		}
		return model.Cat{}, fmt.Errorf("query cat by tag: %w", err)
	}
	return cat, nil
}

// List returns one page of cats plus the total count matching the search.
func (r *catRepo) List(ctx context.Context, p pagination.Params) ([]model.Cat, int, error) {
	where := ""
	args := []interface{}{}
	if clause, searchArgs := pagination.BuildSearchClause(p.Search, CatSearchColumns, 0); clause != "" {
		where = " WHERE " + clause
		args = append(args, searchArgs...)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cats`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cats: %w", err)
	}

	// SortBy comes from a whitelist, never raw user input.
	query := fmt.Sprintf(`SELECT `+catColumns+` FROM cats%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		where, p.SortBy, p.SortOrder, p.Limit, p.Offset())
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cats: %w", err)
	}
	defer rows.Close()

	cats := make([]model.Cat, 0, p.Limit)
	for rows.Next() {
		cat, err := scanCatRow(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan cat: %w", err)
		}
		cats = append(cats, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate cats: %w", err)
	}
	return cats, total, nil
}

// Update rewrites the mutable fields of a cat.
func (r *catRepo) Update(ctx context.Context, cat model.Cat) (model.Cat, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE cats SET name = $2, tag_number = $3, microchip_no = $4, breed = $5,
			colour = $6, markings = $7, sex = $8, birth_year = $9, suburb = $10,
			desexed = $11, owner_id = $12, updated_at = now()
		WHERE id = $1
		RETURNING `+catColumns+`
	`, cat.ID, cat.Name, cat.TagNumber, cat.MicrochipNo, cat.Breed, cat.Colour,
		cat.Markings, cat.Sex, cat.BirthYear, cat.Suburb, cat.Desexed, cat.OwnerID)
	updated, err := scanCatRow(row.Scan)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrUniqueViolation) {
			return model.Cat{}, err
		}
		return model.Cat{}, fmt.Errorf("update cat: %w", err)
	}
	return updated, nil
}

// Delete removes a cat
func (r *catRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cat: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}
