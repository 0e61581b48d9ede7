package visit

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

const visitCols = `id, patient_id, doctor_id, status, reason, started_at, completed_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO visit (id, patient_id, doctor_id, status, reason, started_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		v.ID, v.PatientID, v.DoctorID, v.Status, v.Reason, v.StartedAt,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.pool.QueryRow(ctx, `SELECT `+visitCols+` FROM visit WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, v *Visit) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE visit SET
			doctor_id=$2, status=$3, reason=$4, started_at=$5, completed_at=$6, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.DoctorID, v.Status, v.Reason, v.StartedAt, v.CompletedAt,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM visit WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visit`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+visitCols+` FROM visit ORDER BY started_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visit WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+visitCols+` FROM visit WHERE patient_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectVisits(rows, total)
}

const intakeCols = `id, visit_id, height_cm, weight_kg, chief_complaint, conversation_log, created_at, updated_at`

func (r *repoPG) UpsertIntake(ctx context.Context, in *Intake) error {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO visit_intake (id, visit_id, height_cm, weight_kg, chief_complaint, conversation_log)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (visit_id) DO UPDATE SET
			height_cm=EXCLUDED.height_cm, weight_kg=EXCLUDED.weight_kg,
			chief_complaint=EXCLUDED.chief_complaint, conversation_log=EXCLUDED.conversation_log,
			updated_at=NOW()
		RETURNING id, created_at, updated_at`,
		in.ID, in.VisitID, in.HeightCM, in.WeightKG, in.ChiefComplaint, in.ConversationLog,
	).Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
}

func (r *repoPG) GetIntake(ctx context.Context, visitID uuid.UUID) (*Intake, error) {
	var in Intake
	if err := r.pool.QueryRow(ctx, `SELECT `+intakeCols+` FROM visit_intake WHERE visit_id = $1`, visitID).Scan(
		&in.ID, &in.VisitID, &in.HeightCM, &in.WeightKG, &in.ChiefComplaint, &in.ConversationLog,
		&in.CreatedAt, &in.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &in, nil
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	if err := row.Scan(&v.ID, &v.PatientID, &v.DoctorID, &v.Status, &v.Reason, &v.StartedAt, &v.CompletedAt, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVisits(rows pgx.Rows, total int) ([]*Visit, int, error) {
	var out []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}
