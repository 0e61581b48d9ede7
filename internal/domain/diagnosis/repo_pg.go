package diagnosis

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

const recCols = `id, visit_id, formatted_medical_record, type_inference, diagnosis_explanation,
	prescription, exercise_prescription, overall_status, model_name, response_time, created_at`

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO diagnosis_record (
			id, visit_id, formatted_medical_record, type_inference, diagnosis_explanation,
			prescription, exercise_prescription, overall_status, model_name, response_time
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		rec.ID, rec.VisitID, rec.FormattedMedicalRecord, rec.TypeInference, rec.DiagnosisExplanation,
		rec.Prescription, rec.ExercisePrescription, rec.OverallStatus, rec.ModelName, rec.ResponseTime,
	).Scan(&rec.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRec(r.pool.QueryRow(ctx, `SELECT `+recCols+` FROM diagnosis_record WHERE id = $1`, id))
}

func (r *repoPG) ListByVisit(ctx context.Context, visitID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM diagnosis_record WHERE visit_id = $1`, visitID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+recCols+` FROM diagnosis_record WHERE visit_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		visitID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRec(rows)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, rec)
	}
	return recs, total, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM diagnosis_record WHERE id = $1`, id)
	return err
}

func scanRec(row pgx.Row) (*Record, error) {
	var rec Record
	if err := row.Scan(
		&rec.ID, &rec.VisitID, &rec.FormattedMedicalRecord, &rec.TypeInference, &rec.DiagnosisExplanation,
		&rec.Prescription, &rec.ExercisePrescription, &rec.OverallStatus, &rec.ModelName, &rec.ResponseTime,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
