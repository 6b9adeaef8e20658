package wire

// Patient is the fixed wire representation of a patient document. The
// top-level bookkeeping fields are strongly typed; the clinical sections are
// generic structured Values.
type Patient struct {
	InternalID   string   `json:"internalId"`
	Version      int64    `json:"version"`
	LastUpdated  string   `json:"lastUpdated"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
	Identity     *Value   `json:"identity,omitempty"`
	Demographics *Value   `json:"demographics,omitempty"`
	Contacts     *Value   `json:"contacts,omitempty"`
	Conditions   []*Value `json:"conditions,omitempty"`
	Meta         *Value   `json:"meta,omitempty"`
}

type CreatePatientRequest struct {
	Identity     *Value   `json:"identity,omitempty"`
	Demographics *Value   `json:"demographics,omitempty"`
	Contacts     *Value   `json:"contacts,omitempty"`
	Conditions   []*Value `json:"conditions,omitempty"`
	Meta         *Value   `json:"meta,omitempty"`
}

type GetPatientRequest struct {
	PatientUUID string `json:"patientUuid"`
}

type GetAllPatientsRequest struct {
	Skip  int32 `json:"skip"`
	Limit int32 `json:"limit"`
}

type GetAllPatientsResponse struct {
	Patients []*Patient `json:"patients"`
}

type SearchPatientByIDRequest struct {
	PatientID string `json:"patientId"`
}

// UpdatePatientRequest carries only the sections the caller supplies; nil
// sections are untouched. Conditions is a pointer so "replace with empty
// list" and "not supplied" stay distinguishable. ExpectedVersion, when set,
// requests an optimistic-concurrency precondition; when nil no check is
// performed.
type UpdatePatientRequest struct {
	PatientUUID     string    `json:"patientUuid"`
	ExpectedVersion *int64    `json:"expectedVersion,omitempty"`
	Identity        *Value    `json:"identity,omitempty"`
	Demographics    *Value    `json:"demographics,omitempty"`
	Contacts        *Value    `json:"contacts,omitempty"`
	Conditions      *[]*Value `json:"conditions,omitempty"`
	Meta            *Value    `json:"meta,omitempty"`
}

type DeletePatientRequest struct {
	PatientUUID string `json:"patientUuid"`
}

type DeletePatientResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type PatientResponse struct {
	Patient *Patient `json:"patient"`
}
