package patient

import "time"

// Patient is the domain representation of a patient record. A zero ID means
// the patient has not been persisted yet.
type Patient struct {
	ID             int64
	Name           string
	BirthDate      time.Time
	Gender         string
	Contact        Contact
	Address        Address
	MedicalHistory []MedicalHistoryEntry
}

type Contact struct {
	Phone string
	Email string
}

type Address struct {
	Street     string
	Number     int
	City       string
	State      string
	PostalCode string
}

// MedicalHistoryEntry is a single consultation in a patient's history.
// Entries keep the order in which they were supplied.
type MedicalHistoryEntry struct {
	ConsultationDate time.Time
	Diagnosis        string
	Treatment        string
	Notes            string
}

// IsNew reports whether the patient still lacks a store-assigned identifier.
func (p *Patient) IsNew() bool {
	return p.ID == 0
}
