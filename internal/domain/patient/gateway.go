package patient

import (
	"context"
	"fmt"
)

// Gateway is the port the use-case layer talks to. It speaks domain types and
// hides the persistence shape behind it.
type Gateway interface {
	ListPatients(ctx context.Context) ([]*Patient, error)
	AddPatient(ctx context.Context, p *Patient) (*Patient, error)
	FindPatientByID(ctx context.Context, id int64) (*Patient, error)
	UpdatePatient(ctx context.Context, p *Patient) (*Patient, error)
	SearchPatients(ctx context.Context, name string) ([]*Patient, error)
	DeletePatient(ctx context.Context, p *Patient) error
}

type repoGateway struct {
	repo Repository
}

func NewGateway(repo Repository) Gateway {
	return &repoGateway{repo: repo}
}

func (g *repoGateway) ListPatients(ctx context.Context) ([]*Patient, error) {
	recs, err := g.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return PatientsFromRecords(recs), nil
}

func (g *repoGateway) AddPatient(ctx context.Context, p *Patient) (*Patient, error) {
	rec := PatientToRecord(p)
	rec.ID = 0
	saved, err := g.repo.Save(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("add patient: %w", err)
	}
	return PatientFromRecord(saved), nil
}

func (g *repoGateway) FindPatientByID(ctx context.Context, id int64) (*Patient, error) {
	rec, err := g.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return PatientFromRecord(rec), nil
}

func (g *repoGateway) UpdatePatient(ctx context.Context, p *Patient) (*Patient, error) {
	saved, err := g.repo.Save(ctx, PatientToRecord(p))
	if err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	return PatientFromRecord(saved), nil
}

func (g *repoGateway) SearchPatients(ctx context.Context, name string) ([]*Patient, error) {
	recs, err := g.repo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return PatientsFromRecords(recs), nil
}

func (g *repoGateway) DeletePatient(ctx context.Context, p *Patient) error {
	if p == nil || p.IsNew() {
		return fmt.Errorf("delete patient without id: %w", ErrInvalidArgument)
	}
	exists, err := g.repo.ExistsByID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("delete patient %d: %w", p.ID, err)
	}
	if !exists {
		return fmt.Errorf("delete patient %d: not stored: %w", p.ID, ErrInvalidArgument)
	}
	if err := g.repo.DeleteByID(ctx, p.ID); err != nil {
		return err
	}
	return nil
}
