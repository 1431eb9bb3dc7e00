package patient

import "time"

// Converters between the wire, domain and persistence shapes. Every field is
// mapped by hand; slices keep their length and order.

func PatientFromDTO(d PatientDTO) *Patient {
	p := &Patient{
		ID:        d.ID,
		Name:      d.Name,
		BirthDate: d.BirthDate.Time,
		Gender:    d.Gender,
		Contact: Contact{
			Phone: d.Contact.Phone,
			Email: d.Contact.Email,
		},
		Address: Address{
			Street:     d.Address.Street,
			Number:     d.Address.Number,
			City:       d.Address.City,
			State:      d.Address.State,
			PostalCode: d.Address.PostalCode,
		},
		MedicalHistory: make([]MedicalHistoryEntry, 0, len(d.MedicalHistory)),
	}
	for _, e := range d.MedicalHistory {
		p.MedicalHistory = append(p.MedicalHistory, historyEntryFromDTO(e))
	}
	return p
}

func PatientToDTO(p *Patient) PatientDTO {
	d := PatientDTO{
		ID:        p.ID,
		Name:      p.Name,
		BirthDate: NewDate(p.BirthDate),
		Gender:    p.Gender,
		Contact: ContactDTO{
			Phone: p.Contact.Phone,
			Email: p.Contact.Email,
		},
		Address: AddressDTO{
			Street:     p.Address.Street,
			Number:     p.Address.Number,
			City:       p.Address.City,
			State:      p.Address.State,
			PostalCode: p.Address.PostalCode,
		},
		MedicalHistory: make([]MedicalHistoryEntryDTO, 0, len(p.MedicalHistory)),
	}
	for _, e := range p.MedicalHistory {
		d.MedicalHistory = append(d.MedicalHistory, historyEntryToDTO(e))
	}
	return d
}

// PatientsToDTO never returns nil so empty lists encode as [].
func PatientsToDTO(ps []*Patient) []PatientDTO {
	out := make([]PatientDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, PatientToDTO(p))
	}
	return out
}

func historyEntryFromDTO(d MedicalHistoryEntryDTO) MedicalHistoryEntry {
	return MedicalHistoryEntry{
		ConsultationDate: d.ConsultationDate.Time,
		Diagnosis:        d.Diagnosis,
		Treatment:        d.Treatment,
		Notes:            d.Notes,
	}
}

func historyEntryToDTO(e MedicalHistoryEntry) MedicalHistoryEntryDTO {
	return MedicalHistoryEntryDTO{
		ConsultationDate: NewDate(e.ConsultationDate),
		Diagnosis:        e.Diagnosis,
		Treatment:        e.Treatment,
		Notes:            e.Notes,
	}
}

func PatientToRecord(p *Patient) *PatientRecord {
	r := &PatientRecord{
		ID:        p.ID,
		Name:      p.Name,
		BirthDate: datePtr(p.BirthDate),
		Gender:    p.Gender,
		Contact: &ContactRecord{
			Phone: p.Contact.Phone,
			Email: p.Contact.Email,
		},
		Address: &AddressRecord{
			Street:     p.Address.Street,
			Number:     p.Address.Number,
			City:       p.Address.City,
			State:      p.Address.State,
			PostalCode: p.Address.PostalCode,
		},
		MedicalHistory: make([]*MedicalHistoryRecord, 0, len(p.MedicalHistory)),
	}
	for i, e := range p.MedicalHistory {
		r.MedicalHistory = append(r.MedicalHistory, &MedicalHistoryRecord{
			Position:         i,
			ConsultationDate: datePtr(e.ConsultationDate),
			Diagnosis:        e.Diagnosis,
			Treatment:        e.Treatment,
			Notes:            e.Notes,
		})
	}
	return r
}

func PatientFromRecord(r *PatientRecord) *Patient {
	p := &Patient{
		ID:             r.ID,
		Name:           r.Name,
		BirthDate:      dateValue(r.BirthDate),
		Gender:         r.Gender,
		MedicalHistory: make([]MedicalHistoryEntry, 0, len(r.MedicalHistory)),
	}
	if r.Contact != nil {
		p.Contact = Contact{
			Phone: r.Contact.Phone,
			Email: r.Contact.Email,
		}
	}
	if r.Address != nil {
		p.Address = Address{
			Street:     r.Address.Street,
			Number:     r.Address.Number,
			City:       r.Address.City,
			State:      r.Address.State,
			PostalCode: r.Address.PostalCode,
		}
	}
	for _, h := range r.MedicalHistory {
		p.MedicalHistory = append(p.MedicalHistory, MedicalHistoryEntry{
			ConsultationDate: dateValue(h.ConsultationDate),
			Diagnosis:        h.Diagnosis,
			Treatment:        h.Treatment,
			Notes:            h.Notes,
		})
	}
	return p
}

func PatientsFromRecords(rs []*PatientRecord) []*Patient {
	out := make([]*Patient, 0, len(rs))
	for _, r := range rs {
		out = append(out, PatientFromRecord(r))
	}
	return out
}

// RecordFromDTO and RecordToDTO compose the two conversions above for callers
// that move payloads straight between the wire and the store.
func RecordFromDTO(d PatientDTO) *PatientRecord {
	return PatientToRecord(PatientFromDTO(d))
}

func RecordToDTO(r *PatientRecord) PatientDTO {
	return PatientToDTO(PatientFromRecord(r))
}

func datePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func dateValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
