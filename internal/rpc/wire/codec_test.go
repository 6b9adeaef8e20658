package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fedehr/fedehr/internal/record"
)

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

func samplePatient(t *testing.T) *record.Patient {
	t.Helper()
	deceasedAt := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	onset := record.NewDate(2019, time.June, 2)
	recordedAt := time.Date(2019, 6, 3, 9, 0, 0, 0, time.UTC)
	return &record.Patient{
		InternalID:  uuid.MustParse("6f1b0a52-9a7e-4a0e-8a35-2f4f0e9c1d11"),
		Version:     3,
		LastUpdated: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Identity: record.Identity{
			PatientID:      "PAT-001",
			MRN:            strptr("MRN-42"),
			NationalIDHash: strptr("abcd1234"),
		},
		Demographics: record.Demographics{
			GivenName:  "Amina",
			FamilyName: "Diallo",
			DOB:        record.NewDate(1984, time.November, 20),
			Sex:        strptr("female"),
			Deceased:   true,
			DeceasedAt: &deceasedAt,
			BloodType:  strptr("O+"),
			HeightCm:   intptr(168),
			WeightKg:   intptr(61),
		},
		Contacts: &record.Contacts{
			Address: strptr("12 Rue des Lilas"),
			Phone:   strptr("+33123456789"),
			Email:   strptr("amina@example.org"),
		},
		Conditions: []record.Condition{
			{
				Code:        "E11",
				System:      "ICD-10",
				Description: "Type 2 diabetes",
				Onset:       &onset,
				Status:      "active",
				RecordedAt:  &recordedAt,
			},
			{Code: "I10", System: "ICD-10", Status: "resolved"},
		},
		Meta: record.Meta{
			SourceHospital: "hospital-east",
			ReplicaVector:  map[string]interface{}{"hospital-east": float64(3)},
		},
	}
}

func TestEncodeDecodePatientRoundTrip(t *testing.T) {
	src := samplePatient(t)

	msg, err := EncodePatient(src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodePatient(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.InternalID != src.InternalID {
		t.Errorf("internal id = %s, want %s", got.InternalID, src.InternalID)
	}
	if got.Version != src.Version {
		t.Errorf("version = %d, want %d", got.Version, src.Version)
	}
	if !got.LastUpdated.Equal(src.LastUpdated) || !got.CreatedAt.Equal(src.CreatedAt) || !got.UpdatedAt.Equal(src.UpdatedAt) {
		t.Errorf("timestamps changed across the wire")
	}
	if got.Identity.PatientID != src.Identity.PatientID ||
		got.Identity.MRN == nil || *got.Identity.MRN != *src.Identity.MRN ||
		got.Identity.NationalIDHash == nil || *got.Identity.NationalIDHash != *src.Identity.NationalIDHash {
		t.Errorf("identity = %+v, want %+v", got.Identity, src.Identity)
	}
	if got.Demographics.GivenName != "Amina" || got.Demographics.FamilyName != "Diallo" {
		t.Errorf("name = %s %s", got.Demographics.GivenName, got.Demographics.FamilyName)
	}
	if got.Demographics.DOB.String() != "1984-11-20" {
		t.Errorf("dob = %s, want 1984-11-20", got.Demographics.DOB)
	}
	if got.Demographics.DeceasedAt == nil || !got.Demographics.DeceasedAt.Equal(*src.Demographics.DeceasedAt) {
		t.Errorf("deceasedAt = %v, want %v", got.Demographics.DeceasedAt, src.Demographics.DeceasedAt)
	}
	if got.Demographics.HeightCm == nil || *got.Demographics.HeightCm != 168 {
		t.Errorf("heightCm = %v, want 168", got.Demographics.HeightCm)
	}
	if got.Contacts == nil || *got.Contacts.Email != "amina@example.org" {
		t.Errorf("contacts did not survive: %+v", got.Contacts)
	}
	if len(got.Conditions) != 2 {
		t.Fatalf("conditions = %d, want 2", len(got.Conditions))
	}
	if got.Conditions[0].Onset == nil || got.Conditions[0].Onset.String() != "2019-06-02" {
		t.Errorf("onset = %v, want 2019-06-02", got.Conditions[0].Onset)
	}
	if got.Conditions[0].RecordedAt == nil || !got.Conditions[0].RecordedAt.Equal(*src.Conditions[0].RecordedAt) {
		t.Errorf("recordedAt = %v, want %v", got.Conditions[0].RecordedAt, src.Conditions[0].RecordedAt)
	}
	if got.Conditions[1].Code != "I10" || got.Conditions[1].Onset != nil {
		t.Errorf("sparse condition changed: %+v", got.Conditions[1])
	}
	if got.Meta.SourceHospital != "hospital-east" {
		t.Errorf("sourceHospital = %s", got.Meta.SourceHospital)
	}
	if got.Meta.ReplicaVector["hospital-east"] != float64(3) {
		t.Errorf("replicaVector = %v", got.Meta.ReplicaVector)
	}
}

func TestEncodeDecodeSparsePatient(t *testing.T) {
	src := &record.Patient{
		InternalID:  uuid.New(),
		Version:     1,
		LastUpdated: time.Now().UTC(),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
		Identity:    record.Identity{PatientID: "PAT-SPARSE"},
		Demographics: record.Demographics{
			GivenName:  "Jo",
			FamilyName: "Lee",
			DOB:        record.NewDate(2001, time.January, 1),
		},
		Meta: record.Meta{SourceHospital: "hospital-local"},
	}

	msg, err := EncodePatient(src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if msg.Contacts != nil {
		t.Error("nil contacts should not be emitted")
	}
	if len(msg.Conditions) != 0 {
		t.Errorf("conditions = %d, want none", len(msg.Conditions))
	}

	got, err := DecodePatient(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Contacts != nil {
		t.Errorf("contacts materialized from nothing: %+v", got.Contacts)
	}
	if got.Demographics.Sex != nil || got.Demographics.DeceasedAt != nil {
		t.Errorf("optional demographics materialized: %+v", got.Demographics)
	}
	if got.Identity.PatientID != "PAT-SPARSE" {
		t.Errorf("patientId = %s", got.Identity.PatientID)
	}
}

func TestDecodeCreate(t *testing.T) {
	identity, err := FromJSON([]byte(`{"patientId":"PAT-9","mrn":"M-9"}`))
	if err != nil {
		t.Fatal(err)
	}
	demographics, err := FromJSON([]byte(`{"givenName":"Noa","familyName":"Katz","dob":"1990-05-05"}`))
	if err != nil {
		t.Fatal(err)
	}

	p, err := DecodeCreate(&CreatePatientRequest{
		Identity:     identity,
		Demographics: demographics,
	})
	if err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if p.Identity.PatientID != "PAT-9" || p.Identity.MRN == nil || *p.Identity.MRN != "M-9" {
		t.Errorf("identity = %+v", p.Identity)
	}
	if p.Demographics.DOB.String() != "1990-05-05" {
		t.Errorf("dob = %s", p.Demographics.DOB)
	}
	if p.InternalID != uuid.Nil || p.Version != 0 {
		t.Errorf("bookkeeping should be unset, got id=%s version=%d", p.InternalID, p.Version)
	}
}

func TestDecodeCreateRejectsBadDOB(t *testing.T) {
	demographics, err := FromJSON([]byte(`{"givenName":"X","familyName":"Y","dob":"05/05/1990"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeCreate(&CreatePatientRequest{Demographics: demographics}); err == nil {
		t.Fatal("expected error for non ISO dob")
	}
}

func TestDecodeUpdatePartial(t *testing.T) {
	contacts, err := FromJSON([]byte(`{"phone":"+4790000000"}`))
	if err != nil {
		t.Fatal(err)
	}
	upd, err := DecodeUpdate(&UpdatePatientRequest{
		PatientUUID: uuid.NewString(),
		Contacts:    contacts,
	})
	if err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if upd.Identity != nil || upd.Demographics != nil || upd.Conditions != nil || upd.Meta != nil {
		t.Errorf("untouched sections materialized: %+v", upd)
	}
	if upd.Contacts == nil || upd.Contacts.Phone == nil || *upd.Contacts.Phone != "+4790000000" {
		t.Errorf("contacts patch = %+v", upd.Contacts)
	}
	if upd.Contacts.Email != nil || upd.Contacts.Address != nil {
		t.Errorf("patch carries fields not on the wire: %+v", upd.Contacts)
	}
}

func TestDecodeUpdateEmptyConditionsReplaces(t *testing.T) {
	empty := []*Value{}
	upd, err := DecodeUpdate(&UpdatePatientRequest{Conditions: &empty})
	if err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if upd.Conditions == nil {
		t.Fatal("empty conditions list should still be a replacement")
	}
	if len(*upd.Conditions) != 0 {
		t.Errorf("conditions = %v, want empty", *upd.Conditions)
	}
}

func TestDecodeUpdateAbsentConditionsStaysNil(t *testing.T) {
	upd, err := DecodeUpdate(&UpdatePatientRequest{})
	if err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if upd.Conditions != nil {
		t.Errorf("absent conditions decoded as %v", *upd.Conditions)
	}
	if !upd.IsEmpty() {
		t.Error("empty request should decode to an empty update")
	}
}

func TestDecodeUnknownFieldsAreHarmless(t *testing.T) {
	identity, err := FromJSON([]byte(`{"patientId":"PAT-X","futureField":{"deep":[1,2]}}`))
	if err != nil {
		t.Fatal(err)
	}
	p, err := DecodeCreate(&CreatePatientRequest{Identity: identity})
	if err != nil {
		t.Fatalf("unknown field broke the decode: %v", err)
	}
	if p.Identity.PatientID != "PAT-X" {
		t.Errorf("patientId = %s", p.Identity.PatientID)
	}
}

func TestCoerceTimeRegistry(t *testing.T) {
	if v, ok := CoerceTime("dob", "1984-11-20"); !ok {
		t.Error("dob should coerce")
	} else if d, isDate := v.(record.Date); !isDate || d.String() != "1984-11-20" {
		t.Errorf("dob coerced to %T %v", v, v)
	}
	if v, ok := CoerceTime("recordedAt", "2019-06-03T09:00:00Z"); !ok {
		t.Error("recordedAt should coerce")
	} else if tt, isTime := v.(time.Time); !isTime || tt.Hour() != 9 {
		t.Errorf("recordedAt coerced to %T %v", v, v)
	}
	if _, ok := CoerceTime("dob", "not a date"); ok {
		t.Error("unparseable date should pass through")
	}
	if _, ok := CoerceTime("favoriteColor", "blue"); ok {
		t.Error("unregistered field should pass through")
	}
}

func TestEncodeSectionFieldOrderIsStable(t *testing.T) {
	src := samplePatient(t)
	msg, err := EncodePatient(src)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw, err := json.Marshal(msg.Identity)
	if err != nil {
		t.Fatalf("marshal identity: %v", err)
	}
	want := `{"patientId":"PAT-001","mrn":"MRN-42","nationalIdHash":"abcd1234"}`
	if string(raw) != want {
		t.Errorf("identity order drifted:\ngot  %s\nwant %s", raw, want)
	}
}
