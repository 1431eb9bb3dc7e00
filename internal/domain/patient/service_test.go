package patient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// -- Mock Repository --

type mockPatientRepo struct {
	records map[int64]*PatientRecord
	nextID  int64
	saves   int
	deletes int
	err     error
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{records: make(map[int64]*PatientRecord), nextID: 1}
}

func cloneRecord(r *PatientRecord) *PatientRecord {
	out := *r
	if r.Contact != nil {
		c := *r.Contact
		out.Contact = &c
	}
	if r.Address != nil {
		a := *r.Address
		out.Address = &a
	}
	out.MedicalHistory = make([]*MedicalHistoryRecord, 0, len(r.MedicalHistory))
	for _, h := range r.MedicalHistory {
		e := *h
		out.MedicalHistory = append(out.MedicalHistory, &e)
	}
	return &out
}

func (m *mockPatientRepo) sorted() []*PatientRecord {
	ids := make([]int64, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*PatientRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneRecord(m.records[id]))
	}
	return out
}

func (m *mockPatientRepo) ListAll(_ context.Context) ([]*PatientRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(), nil
}

func (m *mockPatientRepo) FindByID(_ context.Context, id int64) (*PatientRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("find patient %d: %w", id, ErrPatientNotFound)
	}
	return cloneRecord(r), nil
}

func (m *mockPatientRepo) FindByName(_ context.Context, name string) ([]*PatientRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []*PatientRecord{}
	for _, r := range m.sorted() {
		if strings.Contains(strings.ToLower(r.Name), strings.ToLower(name)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockPatientRepo) Save(_ context.Context, r *PatientRecord) (*PatientRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	stored := cloneRecord(r)
	if stored.ID == 0 {
		stored.ID = m.nextID
		m.nextID++
		stored.CreatedAt = time.Now()
	} else if _, ok := m.records[stored.ID]; !ok {
		return nil, ErrPatientNotFound
	}
	stored.UpdatedAt = time.Now()
	m.records[stored.ID] = stored
	m.saves++
	return cloneRecord(stored), nil
}

func (m *mockPatientRepo) ExistsByID(_ context.Context, id int64) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.records[id]
	return ok, nil
}

func (m *mockPatientRepo) DeleteByID(_ context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	delete(m.records, id)
	m.deletes++
	return nil
}

type countingRecorder struct {
	ops []string
}

func (r *countingRecorder) PatientMutation(op string) { r.ops = append(r.ops, op) }

func newTestService() (*Service, *mockPatientRepo) {
	repo := newMockPatientRepo()
	return NewService(NewGateway(repo), zerolog.Nop()), repo
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleAna() *Patient {
	return &Patient{
		Name:      "Ana Silva",
		BirthDate: date(1990, time.May, 1),
		Gender:    "F",
		Contact:   Contact{Phone: "1111", Email: "a@x.com"},
		Address: Address{
			Street: "Rua A", Number: 10, City: "SP", State: "SP", PostalCode: "00000",
		},
		MedicalHistory: []MedicalHistoryEntry{
			{ConsultationDate: date(2024, time.January, 10), Diagnosis: "gripe", Treatment: "repouso", Notes: "retorno em 7 dias"},
			{ConsultationDate: date(2024, time.March, 2), Diagnosis: "rinite", Treatment: "antialérgico"},
		},
	}
}

// -- Service Tests --

func TestService_AddPatient_ThenGet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := sampleAna()
	saved, err := svc.AddPatient(ctx, in)
	if err != nil {
		t.Fatalf("AddPatient: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("expected store-assigned id")
	}

	got, err := svc.GetPatientByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetPatientByID: %v", err)
	}

	in.ID = saved.ID
	assertPatientEqual(t, in, got)
}

func TestService_ListPatients_EmptyIsNotError(t *testing.T) {
	svc, _ := newTestService()

	items, err := svc.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no patients, got %d", len(items))
	}
}

func TestService_ListPatients_StoreOrder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"Ana Silva", "Bruno Costa", "Carla Dias"} {
		if _, err := svc.AddPatient(ctx, &Patient{Name: name}); err != nil {
			t.Fatalf("AddPatient(%s): %v", name, err)
		}
	}

	items, err := svc.ListPatients(ctx)
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 patients, got %d", len(items))
	}
	if items[0].Name != "Ana Silva" || items[2].Name != "Carla Dias" {
		t.Errorf("unexpected order: %s, %s, %s", items[0].Name, items[1].Name, items[2].Name)
	}
}

func TestService_GetPatientByID_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GetPatientByID(context.Background(), 42)
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestService_SearchPatients_NoMatchIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.AddPatient(ctx, sampleAna())

	_, err := svc.SearchPatients(ctx, "Zeca")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestService_SearchPatients_CaseInsensitiveSubstring(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.AddPatient(ctx, sampleAna())
	svc.AddPatient(ctx, &Patient{Name: "Bruno Costa"})

	found, err := svc.SearchPatients(ctx, "silva")
	if err != nil {
		t.Fatalf("SearchPatients: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Ana Silva" {
		t.Fatalf("expected only Ana Silva, got %+v", found)
	}
}

func TestService_UpdatePatient_NotFoundDoesNotWrite(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.UpdatePatient(context.Background(), 99, sampleAna())
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
	if repo.saves != 0 {
		t.Errorf("expected no writes, got %d", repo.saves)
	}
	if len(repo.records) != 0 {
		t.Errorf("expected empty store, got %d records", len(repo.records))
	}
}

func TestService_UpdatePatient_ReplacesWholeRecord(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	saved, err := svc.AddPatient(ctx, sampleAna())
	if err != nil {
		t.Fatalf("AddPatient: %v", err)
	}

	replacement := &Patient{
		Name:    "Ana Souza",
		Gender:  "F",
		Contact: Contact{Email: "ana@y.com"},
		MedicalHistory: []MedicalHistoryEntry{
			{ConsultationDate: date(2025, time.February, 1), Diagnosis: "check-up"},
		},
	}
	updated, err := svc.UpdatePatient(ctx, saved.ID, replacement)
	if err != nil {
		t.Fatalf("UpdatePatient: %v", err)
	}
	if updated.ID != saved.ID {
		t.Errorf("expected id %d, got %d", saved.ID, updated.ID)
	}

	got, err := svc.GetPatientByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetPatientByID: %v", err)
	}
	if got.Name != "Ana Souza" {
		t.Errorf("expected name Ana Souza, got %s", got.Name)
	}
	if !got.BirthDate.IsZero() {
		t.Errorf("expected birth date to be cleared, got %v", got.BirthDate)
	}
	if got.Address != (Address{}) {
		t.Errorf("expected empty address after replace, got %+v", got.Address)
	}
	if len(got.MedicalHistory) != 1 || got.MedicalHistory[0].Diagnosis != "check-up" {
		t.Errorf("expected history to be replaced, got %+v", got.MedicalHistory)
	}
}

func TestService_UpdatePatient_PathIDWins(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	first, _ := svc.AddPatient(ctx, &Patient{Name: "Ana Silva"})
	second, _ := svc.AddPatient(ctx, &Patient{Name: "Bruno Costa"})

	body := &Patient{ID: second.ID, Name: "Ana Maria"}
	if _, err := svc.UpdatePatient(ctx, first.ID, body); err != nil {
		t.Fatalf("UpdatePatient: %v", err)
	}

	if repo.records[first.ID].Name != "Ana Maria" {
		t.Errorf("expected patient %d to be updated", first.ID)
	}
	if repo.records[second.ID].Name != "Bruno Costa" {
		t.Errorf("expected patient %d to be untouched", second.ID)
	}
}

func TestService_DeletePatient(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	saved, _ := svc.AddPatient(ctx, sampleAna())
	if err := svc.DeletePatient(ctx, saved.ID); err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}

	_, err := svc.GetPatientByID(ctx, saved.ID)
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound after delete, got %v", err)
	}
}

func TestService_DeletePatient_NotFoundDoesNotMutate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	svc.AddPatient(ctx, sampleAna())

	err := svc.DeletePatient(ctx, 77)
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
	if repo.deletes != 0 {
		t.Errorf("expected no deletes, got %d", repo.deletes)
	}
	if len(repo.records) != 1 {
		t.Errorf("expected store untouched, got %d records", len(repo.records))
	}
}

func TestService_StoreFailurePropagates(t *testing.T) {
	svc, repo := newTestService()
	repo.err = errors.New("connection refused")

	_, err := svc.ListPatients(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrPatientNotFound) {
		t.Error("store failure must not be reported as not found")
	}
}

func TestService_RecorderSeesMutations(t *testing.T) {
	svc, _ := newTestService()
	rec := &countingRecorder{}
	svc.SetRecorder(rec)
	ctx := context.Background()

	saved, _ := svc.AddPatient(ctx, sampleAna())
	svc.UpdatePatient(ctx, saved.ID, sampleAna())
	svc.GetPatientByID(ctx, saved.ID)
	svc.DeletePatient(ctx, saved.ID)

	want := []string{"create", "update", "delete"}
	if strings.Join(rec.ops, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, rec.ops)
	}
}

func assertPatientEqual(t *testing.T, want, got *Patient) {
	t.Helper()
	if want.ID != got.ID || want.Name != got.Name || want.Gender != got.Gender {
		t.Errorf("scalar fields differ: want %+v, got %+v", want, got)
	}
	if !want.BirthDate.Equal(got.BirthDate) {
		t.Errorf("birth date: want %v, got %v", want.BirthDate, got.BirthDate)
	}
	if want.Contact != got.Contact {
		t.Errorf("contact: want %+v, got %+v", want.Contact, got.Contact)
	}
	if want.Address != got.Address {
		t.Errorf("address: want %+v, got %+v", want.Address, got.Address)
	}
	if len(want.MedicalHistory) != len(got.MedicalHistory) {
		t.Fatalf("history length: want %d, got %d", len(want.MedicalHistory), len(got.MedicalHistory))
	}
	for i := range want.MedicalHistory {
		w, g := want.MedicalHistory[i], got.MedicalHistory[i]
		if !w.ConsultationDate.Equal(g.ConsultationDate) || w.Diagnosis != g.Diagnosis ||
			w.Treatment != g.Treatment || w.Notes != g.Notes {
			t.Errorf("history[%d]: want %+v, got %+v", i, w, g)
		}
	}
}
