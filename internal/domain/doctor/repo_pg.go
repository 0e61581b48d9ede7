package doctor

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const doctorCols = `id, username, password_hash, full_name, title, department, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO doctor (id, username, password_hash, full_name, title, department)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		d.ID, d.Username, d.PasswordHash, d.FullName, d.Title, d.Department,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.pool.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*Doctor, error) {
	return scanDoctor(r.pool.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE username = $1`, username))
}

func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE doctor SET full_name=$2, title=$3, department=$4, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.FullName, d.Title, d.Department,
	)
	return err
}

func (r *repoPG) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE doctor SET password_hash=$2, updated_at=NOW() WHERE id = $1`, id, passwordHash)
	return err
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(&d.ID, &d.Username, &d.PasswordHash, &d.FullName, &d.Title, &d.Department, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
