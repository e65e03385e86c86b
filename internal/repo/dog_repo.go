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

// DogSearchColumns are the columns the list search matches against.
var DogSearchColumns = []string{"name", "tag_number", "microchip_no", "breed", "colour", "suburb"}

// DogSortableFields are the fields the list endpoint may order by.
var DogSortableFields = []string{"created_at", "updated_at", "name", "tag_number", "breed"}

// DogRepo defines the interface for dog repository operations
type DogRepo interface {
	Create(ctx context.Context, dog model.Dog) (model.Dog, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Dog, error)
	GetByTagNumber(ctx context.Context, tagNumber string) (model.Dog, error)
	List(ctx context.Context, p pagination.Params) ([]model.Dog, int, error)
	Update(ctx context.Context, dog model.Dog) (model.Dog, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type dogRepo struct {
	db *sql.DB
}

// NewDogRepo creates a new DogRepo instance
func NewDogRepo(database *sql.DB) DogRepo {
	return &dogRepo{db: database}
}

const dogColumns = `id, name, tag_number, microchip_no, breed, colour, markings, sex,
	birth_year, suburb, desexed, animal_breeder, registration_date, owner_id, created_at, updated_at`

func scanDogRow(scan func(dest ...interface{}) error) (model.Dog, error) {
	var d model.Dog
	err := scan(
		&d.ID, &d.Name, &d.TagNumber, &d.MicrochipNo, &d.Breed, &d.Colour,
		&d.Markings, &d.Sex, &d.BirthYear, &d.Suburb, &d.Desexed, &d.AnimalBreeder,
		&d.RegistrationDate, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return model.Dog{}, db.Classify(err)
	}
	return d, nil
}

// Create inserts a dog; a duplicate tag number surfaces as db.ErrUniqueViolation.
func (r *dogRepo) Create(ctx context.Context, dog model.Dog) (model.Dog, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO dogs (name, tag_number, microchip_no, breed, colour, markings,
			sex, birth_year, suburb, desexed, animal_breeder, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+dogColumns+`
	`, dog.Name, dog.TagNumber, dog.MicrochipNo, dog.Breed, dog.Colour, dog.Markings,
		dog.Sex, dog.BirthYear, dog.Suburb, dog.Desexed, dog.AnimalBreeder, dog.OwnerID)
	created, err := scanDogRow(row.Scan)
	if err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return model.Dog{}, err
		}
		return model.Dog{}, fmt.Errorf("insert dog: %w", err)
	}
	return created, nil
}

// GetByID retrieves a dog by ID
func (r *dogRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Dog, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+dogColumns+` FROM dogs WHERE id = $1`, id)
	dog, err := scanDogRow(row.Scan)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Dog{}, err
		}
		return model.Dog{}, fmt.Errorf("query dog: %w", err)
	}
	return dog, nil
}

// GetByTagNumber retrieves a dog by its unique tag number
func (r *dogRepo) GetByTagNumber(ctx context.Context, tagNumber string) (model.Dog, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+dogColumns+` FROM dogs WHERE tag_number = $1`, tagNumber)
	dog, err := scanDogRow(row.Scan)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return model.Dog{}, err
		}
		return model.Dog{}, fmt.Errorf("query dog by tag: %w", err)
	}
	return dog, nil
}

// List returns one page of dogs plus the total count matching the search.
func (r *dogRepo) List(ctx context.Context, p pagination.Params) ([]model.Dog, int, error) {
	where := ""
	args := []interface{}{}
	if clause, searchArgs := pagination.BuildSearchClause(p.Search, DogSearchColumns, 0); clause != "" {
		where = " WHERE " + clause
		args = append(args, searchArgs...)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dogs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dogs: %w", err)
	}

	// SortBy comes from a whitelist, never raw user input.
	query := fmt.Sprintf(`SELECT `+dogColumns+` FROM dogs%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		where, p.SortBy, p.SortOrder, p.Limit, p.Offset())
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list dogs: %w", err)
	}
	defer rows.Close()

	dogs := make([]model.Dog, 0, p.Limit)
	for rows.Next() {
		dog, err := scanDogRow(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dog: %w", err)
		}
		dogs = append(dogs, dog)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate dogs: %w", err)
	}
	return dogs, total, nil
}

// Update rewrites the mutable fields of a dog.
func (r *dogRepo) Update(ctx context.Context, dog model.Dog) (model.Dog, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE dogs SET name = $2, tag_number = $3, microchip_no = $4, breed = $5,
			colour = $6, markings = $7, sex = $8, birth_year = $9, suburb = $10,
			desexed = $11, animal_breeder = $12, owner_id = $13, updated_at = now()
		WHERE id = $1
		RETURNING `+dogColumns+`
	`, dog.ID, dog.Name, dog.TagNumber, dog.MicrochipNo, dog.Breed, dog.Colour,
		dog.Markings, dog.Sex, dog.BirthYear, dog.Suburb, dog.Desexed, dog.AnimalBreeder, dog.OwnerID)
	updated, err := scanDogRow(row.Scan)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrUniqueViolation) {
			return model.Dog{}, err
		}
		return model.Dog{}, fmt.Errorf("update dog: %w", err)
	}
	return updated, nil
}

// Delete removes a dog
func (r *dogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM dogs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dog: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}
