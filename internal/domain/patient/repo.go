package patient

import "context"

// Repository is the store access for patient records. Records are loaded and
// written together with their contact, address and medical history.
type Repository interface {
	ListAll(ctx context.Context) ([]*PatientRecord, error)
	FindByID(ctx context.Context, id int64) (*PatientRecord, error)
	FindByName(ctx context.Context, name string) ([]*PatientRecord, error)
	// Save inserts when r.ID is zero and updates otherwise, replacing every
	// dependent row. The returned record carries the stored identifiers.
	Save(ctx context.Context, r *PatientRecord) (*PatientRecord, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	DeleteByID(ctx context.Context, id int64) error
}
