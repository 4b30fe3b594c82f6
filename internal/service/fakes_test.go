package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/document"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/identity"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/record"
	"github.com/vanessaachristy/mymedtrust-be/internal/ledger"
)

// fakeLedger is an in-memory Gateway with switchable failure injection.
type fakeLedger struct {
	mu       sync.Mutex
	patients map[domain.Address]*identity.Patient
	doctors  map[domain.Address]*identity.Doctor
	records  map[string]*record.Record

	failSends bool
	sendCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		patients: make(map[domain.Address]*identity.Patient),
		doctors:  make(map[domain.Address]*identity.Doctor),
		records:  make(map[string]*record.Record),
	}
}

func (f *fakeLedger) receipt() *ledger.Receipt {
	return &ledger.Receipt{
		TxHash:    fmt.Sprintf("0xtx%d", f.sendCalls),
		Block:     uint64(f.sendCalls),
		Timestamp: time.Now().UTC(),
	}
}

func (f *fakeLedger) GetPatient(_ context.Context, addr domain.Address) (*identity.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[addr]
	if !ok {
		return nil, identity.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeLedger) ListPatients(_ context.Context) ([]*identity.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*identity.Patient, 0, len(f.patients))
	for _, p := range f.patients {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeLedger) GetDoctor(_ context.Context, addr domain.Address) (*identity.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[addr]
	if !ok {
		return nil, identity.ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeLedger) ListDoctors(_ context.Context) ([]*identity.Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*identity.Doctor, 0, len(f.doctors))
	for _, d := range f.doctors {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeLedger) GetRecord(_ context.Context, id string) (*record.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, record.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeLedger) beginSend() error {
	f.sendCalls++
	if f.failSends {
		return ledger.ErrUnavailable
	}
	return nil
}

func (f *fakeLedger) CreatePatient(_ context.Context, cmd *identity.CreatePatientCommand, _ domain.Address) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginSend(); err != nil {
		return nil, err
	}
	f.patients[cmd.PrimaryInfo.Address] = &identity.Patient{
		PrimaryInfo:      cmd.PrimaryInfo,
		EmergencyContact: cmd.EmergencyContact,
		EmergencyNumber:  cmd.EmergencyNumber,
		BloodType:        cmd.BloodType,
		Height:           cmd.Height,
		Weight:           cmd.Weight,
	}
	return f.receipt(), nil
}

func (f *fakeLedger) CreateDoctor(_ context.Context, cmd *identity.CreateDoctorCommand, _ domain.Address) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginSend(); err != nil {
		return nil, err
	}
	f.doctors[cmd.PrimaryInfo.Address] = &identity.Doctor{
		PrimaryInfo:   cmd.PrimaryInfo,
		Qualification: cmd.Qualification,
		Major:         cmd.Major,
	}
	return f.receipt(), nil
}

func (f *fakeLedger) CreateRecord(_ context.Context, id, fingerprint string, doctor, patient, _ domain.Address) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginSend(); err != nil {
		return nil, err
	}
	f.records[id] = &record.Record{
		ID:           id,
		Fingerprint:  fingerprint,
		IssuerDoctor: doctor,
		Patient:      patient,
		CreatedAt:    time.Now().UTC(),
		Status:       record.StatusPending,
	}
	if p, ok := f.patients[patient]; ok {
		p.Records = append(p.Records, id)
	}
	return f.receipt(), nil
}

func (f *fakeLedger) EditRecord(_ context.Context, id, fingerprint string, status record.Status, _ domain.Address) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginSend(); err != nil {
		return nil, err
	}
	r, ok := f.records[id]
	if !ok {
		return nil, ledger.ErrRejected
	}
	r.Fingerprint = fingerprint
	r.Status = status
	return f.receipt(), nil
}

func (f *fakeLedger) RemoveRecord(_ context.Context, id string, patient, _ domain.Address) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginSend(); err != nil {
		return nil, err
	}
	delete(f.records, id)
	if p, ok := f.patients[patient]; ok {
		kept := p.Records[:0]
		for _, rid := range p.Records {
			if rid != id {
				kept = append(kept, rid)
			}
		}
		p.Records = kept
	}
	return f.receipt(), nil
}

func (f *fakeLedger) AddWhitelist(_ context.Context, doctor, patient, _ domain.Address) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginSend(); err != nil {
		return nil, err
	}
	p, ok := f.patients[patient]
	if !ok {
		return nil, ledger.ErrRejected
	}
	p.Whitelist = append(p.Whitelist, doctor)
	return f.receipt(), nil
}

func (f *fakeLedger) RemoveWhitelist(_ context.Context, doctor, patient, _ domain.Address) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginSend(); err != nil {
		return nil, err
	}
	p, ok := f.patients[patient]
	if !ok {
		return nil, ledger.ErrRejected
	}
	kept := p.Whitelist[:0]
	for _, d := range p.Whitelist {
		if d != doctor {
			kept = append(kept, d)
		}
	}
	p.Whitelist = kept
	return f.receipt(), nil
}

// fakeStore is an in-memory document store with failure injection for
// specific operations.
type fakeStore struct {
	mu   sync.Mutex
	docs map[string]*document.Document

	failCreate bool
	failUpdate bool
	failDelete bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]*document.Document)}
}

func (f *fakeStore) Find(_ context.Context, kind document.Kind, id string) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.Kind != kind {
		return nil, document.ErrDocumentNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) FindAny(_ context.Context, id string) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, document.ErrDocumentNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) ListByKind(_ context.Context, kind document.Kind) ([]*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*document.Document, 0)
	for _, d := range f.docs {
		if d.Kind == kind {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, doc *document.Document) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, errStoreInjected
	}
	if err := document.Validate(doc.Kind, doc.Payload); err != nil {
		return nil, err
	}
	cp := *doc
	f.docs[doc.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) Update(_ context.Context, doc *document.Document) (*document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return nil, errStoreInjected
	}
	if _, ok := f.docs[doc.ID]; !ok {
		return nil, document.ErrDocumentNotFound
	}
	cp := *doc
	f.docs[doc.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) Delete(_ context.Context, _ document.Kind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errStoreInjected
	}
	delete(f.docs, id)
	return nil
}

var errStoreInjected = fmt.Errorf("injected store failure")
