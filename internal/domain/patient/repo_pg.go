package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/pacientes/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, name, birth_date, gender, created_at, updated_at`

func scanPatient(row pgx.Row) (*PatientRecord, error) {
	var p PatientRecord
	err := row.Scan(&p.ID, &p.Name, &p.BirthDate, &p.Gender, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) ListAll(ctx context.Context) ([]*PatientRecord, error) {
	return r.queryPatients(ctx, `SELECT `+patientCols+` FROM patient ORDER BY id`)
}

func (r *patientRepoPG) FindByID(ctx context.Context, id int64) (*PatientRecord, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find patient %d: %w", id, ErrPatientNotFound)
		}
		return nil, fmt.Errorf("find patient %d: %w", id, err)
	}
	if err := r.loadDependents(ctx, []*PatientRecord{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *patientRepoPG) FindByName(ctx context.Context, name string) ([]*PatientRecord, error) {
	return r.queryPatients(ctx,
		`SELECT `+patientCols+` FROM patient WHERE name ILIKE '%' || $1 || '%' ESCAPE '\' ORDER BY id`,
		escapeLike(name))
}

func (r *patientRepoPG) queryPatients(ctx context.Context, sql string, args ...interface{}) ([]*PatientRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	items := []*PatientRecord{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	if err := r.loadDependents(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// loadDependents fills contact, address and history for every record using
// one query per dependent table.
func (r *patientRepoPG) loadDependents(ctx context.Context, items []*PatientRecord) error {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[int64]*PatientRecord, len(items))
	ids := make([]int64, 0, len(items))
	for _, p := range items {
		p.MedicalHistory = []*MedicalHistoryRecord{}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	q := r.conn(ctx)

	rows, err := q.Query(ctx,
		`SELECT id, patient_id, phone, email FROM patient_contact WHERE patient_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("query contacts: %w", err)
	}
	for rows.Next() {
		var c ContactRecord
		var pid int64
		if err := rows.Scan(&c.ID, &pid, &c.Phone, &c.Email); err != nil {
			rows.Close()
			return fmt.Errorf("scan contact: %w", err)
		}
		byID[pid].Contact = &c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate contacts: %w", err)
	}

	rows, err = q.Query(ctx,
		`SELECT id, patient_id, street, number, city, state, postal_code
		FROM patient_address WHERE patient_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("query addresses: %w", err)
	}
	for rows.Next() {
		var a AddressRecord
		var pid int64
		if err := rows.Scan(&a.ID, &pid, &a.Street, &a.Number, &a.City, &a.State, &a.PostalCode); err != nil {
			rows.Close()
			return fmt.Errorf("scan address: %w", err)
		}
		byID[pid].Address = &a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate addresses: %w", err)
	}

	rows, err = q.Query(ctx,
		`SELECT id, patient_id, position, consultation_date, diagnosis, treatment, notes
		FROM patient_medical_history WHERE patient_id = ANY($1) ORDER BY patient_id, position`, ids)
	if err != nil {
		return fmt.Errorf("query medical history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h MedicalHistoryRecord
		var pid int64
		if err := rows.Scan(&h.ID, &pid, &h.Position, &h.ConsultationDate, &h.Diagnosis, &h.Treatment, &h.Notes); err != nil {
			return fmt.Errorf("scan medical history: %w", err)
		}
		p := byID[pid]
		p.MedicalHistory = append(p.MedicalHistory, &h)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate medical history: %w", err)
	}
	return nil
}

func (r *patientRepoPG) Save(ctx context.Context, rec *PatientRecord) (*PatientRecord, error) {
	saved := &PatientRecord{
		ID:        rec.ID,
		Name:      rec.Name,
		BirthDate: rec.BirthDate,
		Gender:    rec.Gender,
	}

	err := db.InTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		if saved.ID == 0 {
			err := q.QueryRow(ctx, `
				INSERT INTO patient (name, birth_date, gender)
				VALUES ($1, $2, $3)
				RETURNING id, created_at, updated_at`,
				saved.Name, saved.BirthDate, saved.Gender,
			).Scan(&saved.ID, &saved.CreatedAt, &saved.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert patient: %w", err)
			}
		} else {
			err := q.QueryRow(ctx, `
				UPDATE patient SET name = $2, birth_date = $3, gender = $4, updated_at = NOW()
				WHERE id = $1
				RETURNING created_at, updated_at`,
				saved.ID, saved.Name, saved.BirthDate, saved.Gender,
			).Scan(&saved.CreatedAt, &saved.UpdatedAt)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("update patient %d: %w", saved.ID, ErrPatientNotFound)
				}
				return fmt.Errorf("update patient %d: %w", saved.ID, err)
			}
			if err := r.deleteDependents(ctx, q, saved.ID); err != nil {
				return err
			}
		}
		return r.insertDependents(ctx, q, saved, rec)
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *patientRepoPG) deleteDependents(ctx context.Context, q queryable, patientID int64) error {
	for _, table := range []string{"patient_contact", "patient_address", "patient_medical_history"} {
		if _, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE patient_id = $1`, patientID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (r *patientRepoPG) insertDependents(ctx context.Context, q queryable, saved, src *PatientRecord) error {
	if src.Contact != nil {
		c := *src.Contact
		err := q.QueryRow(ctx, `
			INSERT INTO patient_contact (patient_id, phone, email)
			VALUES ($1, $2, $3) RETURNING id`,
			saved.ID, c.Phone, c.Email,
		).Scan(&c.ID)
		if err != nil {
			return fmt.Errorf("insert contact: %w", err)
		}
		saved.Contact = &c
	}

	if src.Address != nil {
		a := *src.Address
		err := q.QueryRow(ctx, `
			INSERT INTO patient_address (patient_id, street, number, city, state, postal_code)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			saved.ID, a.Street, a.Number, a.City, a.State, a.PostalCode,
		).Scan(&a.ID)
		if err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
		saved.Address = &a
	}

	saved.MedicalHistory = make([]*MedicalHistoryRecord, 0, len(src.MedicalHistory))
	for i, h := range src.MedicalHistory {
		entry := *h
		entry.Position = i
		err := q.QueryRow(ctx, `
			INSERT INTO patient_medical_history
				(patient_id, position, consultation_date, diagnosis, treatment, notes)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			saved.ID, entry.Position, entry.ConsultationDate, entry.Diagnosis, entry.Treatment, entry.Notes,
		).Scan(&entry.ID)
		if err != nil {
			return fmt.Errorf("insert medical history entry %d: %w", i, err)
		}
		saved.MedicalHistory = append(saved.MedicalHistory, &entry)
	}
	return nil
}

func (r *patientRepoPG) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patient WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check patient %d: %w", id, err)
	}
	return exists, nil
}

// DeleteByID removes the patient; dependent rows go with it through the
// ON DELETE CASCADE foreign keys.
func (r *patientRepoPG) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete patient %d: %w", id, err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
