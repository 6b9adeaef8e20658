package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fedehr/fedehr/internal/record"
	"github.com/fedehr/fedehr/internal/rpc/wire"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// PatientService answers the patient-record RPC methods over a repository
// adapter. All input validation happens here so the store only ever sees
// well-formed arguments.
type PatientService struct {
	store *record.Store
	log   zerolog.Logger
}

func NewPatientService(store *record.Store, log zerolog.Logger) *PatientService {
	return &PatientService{store: store, log: log}
}

func (s *PatientService) CreatePatient(ctx context.Context, req *wire.CreatePatientRequest) (*wire.PatientResponse, error) {
	p, err := wire.DecodeCreate(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	created, err := s.store.Create(ctx, p)
	if err != nil {
		return nil, s.translate(err, "create patient")
	}
	return patientResponse(created)
}

func (s *PatientService) GetPatient(ctx context.Context, req *wire.GetPatientRequest) (*wire.PatientResponse, error) {
	id, err := uuid.Parse(req.PatientUUID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "Invalid UUID format")
	}
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "Patient with UUID %s not found", id)
		}
		return nil, s.translate(err, "get patient")
	}
	return patientResponse(p)
}

func (s *PatientService) GetAllPatients(ctx context.Context, req *wire.GetAllPatientsRequest) (*wire.GetAllPatientsResponse, error) {
	skip := int(req.Skip)
	if skip < 0 {
		skip = 0
	}
	limit := int(req.Limit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	patients, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return nil, s.translate(err, "list patients")
	}
	resp := &wire.GetAllPatientsResponse{Patients: make([]*wire.Patient, 0, len(patients))}
	for _, p := range patients {
		msg, err := wire.EncodePatient(p)
		if err != nil {
			return nil, s.translate(err, "list patients")
		}
		resp.Patients = append(resp.Patients, msg)
	}
	return resp, nil
}

func (s *PatientService) SearchPatientById(ctx context.Context, req *wire.SearchPatientByIDRequest) (*wire.PatientResponse, error) {
	if req.PatientID == "" {
		return nil, status.Error(codes.InvalidArgument, "patient_id is required")
	}
	p, err := s.store.GetByPatientID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "Patient with patient_id %s not found", req.PatientID)
		}
		return nil, s.translate(err, "search patient")
	}
	return patientResponse(p)
}

func (s *PatientService) UpdatePatient(ctx context.Context, req *wire.UpdatePatientRequest) (*wire.PatientResponse, error) {
	id, err := uuid.Parse(req.PatientUUID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "Invalid UUID format")
	}
	upd, err := wire.DecodeUpdate(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	updated, err := s.store.Update(ctx, id, upd, req.ExpectedVersion)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "Patient with UUID %s not found", id)
		}
		return nil, s.translate(err, "update patient")
	}
	return patientResponse(updated)
}

func (s *PatientService) DeletePatient(ctx context.Context, req *wire.DeletePatientRequest) (*wire.DeletePatientResponse, error) {
	id, err := uuid.Parse(req.PatientUUID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "Invalid UUID format")
	}
	outcome, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, s.translate(err, "delete patient")
	}
	if outcome == record.NotDeletedNotFound {
		return nil, status.Errorf(codes.NotFound, "Patient with UUID %s not found", id)
	}
	return &wire.DeletePatientResponse{
		Success: true,
		Message: "Patient deleted successfully",
	}, nil
}

// translate maps repository errors onto RPC status codes. Unexpected errors
// are logged in full but surface only a short diagnostic.
func (s *PatientService) translate(err error, op string) error {
	switch {
	case errors.Is(err, record.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, record.ErrDuplicateIdentity):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, record.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, record.ErrVersionConflict):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	s.log.Error().Err(err).Str("op", op).Msg("patient rpc failed")
	return status.Errorf(codes.Internal, "%s: internal error", op)
}

func patientResponse(p *record.Patient) (*wire.PatientResponse, error) {
	msg, err := wire.EncodePatient(p)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode patient: %v", err))
	}
	return &wire.PatientResponse{Patient: msg}, nil
}
