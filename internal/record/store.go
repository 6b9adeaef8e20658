package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fedehr/fedehr/internal/platform/docstore"
)

var (
	// ErrDuplicateIdentity is returned when a create collides with an
	// existing identity.patientId.
	ErrDuplicateIdentity = errors.New("patient identity already exists")

	// ErrNotFound is returned when a keyed lookup or mutation targets a
	// nonexistent document.
	ErrNotFound = errors.New("patient not found")

	// ErrVersionConflict is returned when a caller-supplied expected version
	// does not match the stored version.
	ErrVersionConflict = errors.New("patient version conflict")

	// ErrInvalidInput marks caller mistakes such as missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)

// DeleteOutcome distinguishes "delete succeeded" from "nothing to delete".
type DeleteOutcome int

const (
	Deleted DeleteOutcome = iota
	NotDeletedNotFound
)

// Store wraps the document repository with identity and version semantics.
// Versions are bumped by a read-then-write sequence; two concurrent updates
// to the same document race and the store's last write wins unless the
// caller supplies an expected version.
type Store struct {
	docs           DocumentRepository
	sourceHospital string
	now            func() time.Time
}

func NewStore(docs DocumentRepository, sourceHospital string) *Store {
	return &Store{
		docs:           docs,
		sourceHospital: sourceHospital,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

var patientIDPath = []string{"identity", "patientId"}

var validBloodTypes = map[string]bool{
	"A+": true, "A-": true,
	"B+": true, "B-": true,
	"AB+": true, "AB-": true,
	"O+": true, "O-": true,
}

// validateDemographics enforces the required demographics fields and the
// blood type allow-list. Checked on create and again after applying an
// update so a patch cannot blank a required field.
func validateDemographics(d *Demographics) error {
	if d.GivenName == "" {
		return fmt.Errorf("%w: demographics.givenName is required", ErrInvalidInput)
	}
	if d.FamilyName == "" {
		return fmt.Errorf("%w: demographics.familyName is required", ErrInvalidInput)
	}
	if d.DOB.IsZero() {
		return fmt.Errorf("%w: demographics.dob is required", ErrInvalidInput)
	}
	if d.BloodType != nil && !validBloodTypes[*d.BloodType] {
		return fmt.Errorf("%w: unknown blood type %q", ErrInvalidInput, *d.BloodType)
	}
	return nil
}

// Create inserts a new patient document with version 1 and fresh timestamps.
// The store's unique index is the authoritative duplicate check; the
// pre-insert lookup only produces the friendlier error on the common path.
func (s *Store) Create(ctx context.Context, p *Patient) (*Patient, error) {
	if p.Identity.PatientID == "" {
		return nil, fmt.Errorf("%w: identity.patientId is required", ErrInvalidInput)
	}
	if err := validateDemographics(&p.Demographics); err != nil {
		return nil, err
	}

	existing, err := s.docs.FindByField(ctx, patientIDPath, p.Identity.PatientID)
	if err != nil {
		return nil, fmt.Errorf("check patient identity: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateIdentity
	}

	now := s.now()
	p.InternalID = uuid.New()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	p.LastUpdated = now
	if p.Meta.SourceHospital == "" {
		p.Meta.SourceHospital = s.sourceHospital
	}

	doc, err := toDocument(p)
	if err != nil {
		return nil, err
	}
	stored, err := s.docs.Insert(ctx, p.InternalID, doc)
	if err != nil {
		if errors.Is(err, docstore.ErrUniqueViolation) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	return fromDocument(stored)
}

// GetByID returns the patient with the given internal id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return fromDocument(doc)
}

// GetByPatientID returns the patient with the given external identifier.
func (s *Store) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	doc, err := s.docs.FindByField(ctx, patientIDPath, patientID)
	if err != nil {
		return nil, fmt.Errorf("search patient: %w", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return fromDocument(doc)
}

// List returns up to limit patients after skipping skip, in repository order.
func (s *Store) List(ctx context.Context, skip, limit int) ([]*Patient, error) {
	docs, err := s.docs.FindPage(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	patients := make([]*Patient, 0, len(docs))
	for _, doc := range docs {
		p, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, nil
}

// Update merges the supplied fields into the stored document, bumps the
// version by exactly one and refreshes updatedAt/lastUpdated. An empty
// update is a no-op that returns the stored document unchanged. When
// expectedVersion is non-nil the stored version must match or the update
// fails with ErrVersionConflict; when nil no concurrency check is requested.
func (s *Store) Update(ctx context.Context, id uuid.UUID, upd *Update, expectedVersion *int64) (*Patient, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	current, err := fromDocument(doc)
	if err != nil {
		return nil, err
	}

	if expectedVersion != nil && *expectedVersion != current.Version {
		return nil, fmt.Errorf("%w: expected %d, stored %d",
			ErrVersionConflict, *expectedVersion, current.Version)
	}
	if upd.IsEmpty() {
		return current, nil
	}

	upd.Apply(current)
	if err := validateDemographics(&current.Demographics); err != nil {
		return nil, err
	}
	current.Version++
	now := s.now()
	current.UpdatedAt = now
	current.LastUpdated = now

	merged, err := toDocument(current)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		"version":     merged["version"],
		"updatedAt":   merged["updatedAt"],
		"lastUpdated": merged["lastUpdated"],
	}
	if upd.Identity != nil {
		fields["identity"] = merged["identity"]
	}
	if upd.Demographics != nil {
		fields["demographics"] = merged["demographics"]
	}
	if upd.Contacts != nil {
		fields["contacts"] = merged["contacts"]
	}
	if upd.Conditions != nil {
		fields["conditions"] = merged["conditions"]
	}
	if upd.Meta != nil {
		fields["meta"] = merged["meta"]
	}

	stored, err := s.docs.MergeUpdate(ctx, id, fields)
	if err != nil {
		if errors.Is(err, docstore.ErrUniqueViolation) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("update patient: %w", err)
	}
	if stored == nil {
		return nil, ErrNotFound
	}
	return fromDocument(stored)
}

// Delete removes the patient document. There is no soft delete.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (DeleteOutcome, error) {
	removed, err := s.docs.Remove(ctx, id)
	if err != nil {
		return NotDeletedNotFound, fmt.Errorf("delete patient: %w", err)
	}
	if !removed {
		return NotDeletedNotFound, nil
	}
	return Deleted, nil
}

// toDocument renders the patient into its stored JSON shape.
func toDocument(p *Patient) (map[string]interface{}, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode patient document: %w", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode patient document: %w", err)
	}
	return doc, nil
}

// fromDocument rehydrates a stored document into the patient model.
func fromDocument(doc map[string]interface{}) (*Patient, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode patient document: %w", err)
	}
	p := &Patient{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode patient document: %w", err)
	}
	return p, nil
}
