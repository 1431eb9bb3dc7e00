package patient

import "time"

// PatientRecord mirrors the patient table and owns its dependent rows.
// Dependents are loaded and written together with their owner.
type PatientRecord struct {
	ID             int64
	Name           string
	BirthDate      *time.Time
	Gender         string
	Contact        *ContactRecord
	Address        *AddressRecord
	MedicalHistory []*MedicalHistoryRecord
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ContactRecord struct {
	ID    int64
	Phone string
	Email string
}

type AddressRecord struct {
	ID         int64
	Street     string
	Number     int
	City       string
	State      string
	PostalCode string
}

type MedicalHistoryRecord struct {
	ID               int64
	Position         int
	ConsultationDate *time.Time
	Diagnosis        string
	Treatment        string
	Notes            string
}
