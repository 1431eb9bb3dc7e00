package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date carried on the wire as "YYYY-MM-DD". The zero value
// encodes as null and null decodes to the zero value.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("date %q must use YYYY-MM-DD: %w", s, err)
	}
	d.Time = t
	return nil
}

// PatientDTO is the JSON payload accepted and returned by /pacientes.
type PatientDTO struct {
	ID             int64                    `json:"id,omitempty"`
	Name           string                   `json:"nome"`
	BirthDate      Date                     `json:"dataNascimento"`
	Gender         string                   `json:"genero"`
	Contact        ContactDTO               `json:"contato"`
	Address        AddressDTO               `json:"endereco"`
	MedicalHistory []MedicalHistoryEntryDTO `json:"historicoMedico"`
}

type ContactDTO struct {
	Phone string `json:"telefone"`
	Email string `json:"email"`
}

type AddressDTO struct {
	Street     string `json:"rua"`
	Number     int    `json:"numero"`
	City       string `json:"cidade"`
	State      string `json:"estado"`
	PostalCode string `json:"cep"`
}

type MedicalHistoryEntryDTO struct {
	ConsultationDate Date   `json:"dataConsulta"`
	Diagnosis        string `json:"diagnostico"`
	Treatment        string `json:"tratamento"`
	Notes            string `json:"observacoes"`
}
