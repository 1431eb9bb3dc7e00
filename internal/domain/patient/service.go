package patient

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Service holds the patient use cases. Every call goes through the gateway.
type Service struct {
	gw     Gateway
	logger zerolog.Logger
	rec    Recorder
}

// Recorder is notified after every successful mutation.
type Recorder interface {
	PatientMutation(op string)
}

func (s *Service) SetRecorder(r Recorder) { s.rec = r }

func (s *Service) record(op string) {
	if s.rec != nil {
		s.rec.PatientMutation(op)
	}
}

func NewService(gw Gateway, logger zerolog.Logger) *Service {
	return &Service{
		gw:     gw,
		logger: logger.With().Str("component", "patient").Logger(),
	}
}

// ListPatients returns every stored patient. An empty store is not an error.
func (s *Service) ListPatients(ctx context.Context) ([]*Patient, error) {
	return s.gw.ListPatients(ctx)
}

func (s *Service) AddPatient(ctx context.Context, p *Patient) (*Patient, error) {
	saved, err := s.gw.AddPatient(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("patient_id", saved.ID).Msg("patient created")
	s.record("create")
	return saved, nil
}

func (s *Service) GetPatientByID(ctx context.Context, id int64) (*Patient, error) {
	return s.gw.FindPatientByID(ctx, id)
}

// UpdatePatient replaces the stored patient with p as a whole. The patient
// must already exist; the path id always wins over any id in p.
func (s *Service) UpdatePatient(ctx context.Context, id int64, p *Patient) (*Patient, error) {
	if _, err := s.GetPatientByID(ctx, id); err != nil {
		return nil, err
	}
	p.ID = id
	saved, err := s.gw.UpdatePatient(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("patient_id", saved.ID).Msg("patient updated")
	s.record("update")
	return saved, nil
}

// SearchPatients matches name as a case-insensitive substring. Unlike
// ListPatients, an empty result is reported as ErrPatientNotFound.
func (s *Service) SearchPatients(ctx context.Context, name string) ([]*Patient, error) {
	found, err := s.gw.SearchPatients(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("search %q: %w", name, ErrPatientNotFound)
	}
	return found, nil
}

func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	p, err := s.GetPatientByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.gw.DeletePatient(ctx, p); err != nil {
		return err
	}
	s.logger.Info().Int64("patient_id", id).Msg("patient deleted")
	s.record("delete")
	return nil
}
