package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pangkas-pos/pangkas/internal/platform/db"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// Repository reads barber profiles from PostgreSQL.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a Repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

const barberColumns = `id, user_id, name, COALESCE(phone, ''), COALESCE(email, ''), status, commission_rate, salary, created_at, updated_at`

// Get returns a barber profile by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Barber, error) {
	row := r.db.QueryRow(ctx, `SELECT `+barberColumns+` FROM barbers WHERE id = $1`, id)
	b, err := scanBarber(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("staff: barber %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return b, nil
}

// ListActive returns active barbers ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]Barber, error) {
	rows, err := r.db.Query(ctx, `SELECT `+barberColumns+` FROM barbers WHERE status = $1 ORDER BY name`, BarberStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var barbers []Barber
	for rows.Next() {
		b, err := scanBarber(rows)
		if err != nil {
			return nil, err
		}
		barbers = append(barbers, *b)
	}
	return barbers, rows.Err()
}

func scanBarber(row pgx.Row) (*Barber, error) {
	var b Barber
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Phone, &b.Email, &b.Status, &b.CommissionRate, &b.BaseSalary, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
