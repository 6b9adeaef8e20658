package record

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage representation of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time component. It marshals to
// "YYYY-MM-DD" in JSON.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Patient is the canonical clinical record. The nested sections evolve
// independently of the wire schema; anything added here rides across the RPC
// boundary without a wire-schema change.
type Patient struct {
	InternalID   uuid.UUID    `json:"internalId"`
	Version      int64        `json:"version"`
	LastUpdated  time.Time    `json:"lastUpdated"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	Identity     Identity     `json:"identity"`
	Demographics Demographics `json:"demographics"`
	Contacts     *Contacts    `json:"contacts,omitempty"`
	Conditions   []Condition  `json:"conditions,omitempty"`
	Meta         Meta         `json:"meta"`
}

// Identity carries the externally supplied identifiers. PatientID is unique
// across the repository.
type Identity struct {
	PatientID      string  `json:"patientId"`
	MRN            *string `json:"mrn,omitempty"`
	NationalIDHash *string `json:"nationalIdHash,omitempty"`
}

type Demographics struct {
	GivenName  string     `json:"givenName"`
	FamilyName string     `json:"familyName"`
	DOB        Date       `json:"dob"`
	Sex        *string    `json:"sex,omitempty"`
	Gender     *string    `json:"gender,omitempty"`
	Deceased   bool       `json:"deceased"`
	DeceasedAt *time.Time `json:"deceasedAt,omitempty"`
	BloodType  *string    `json:"bloodType,omitempty"`
	HeightCm   *int       `json:"heightCm,omitempty"`
	WeightKg   *int       `json:"weightKg,omitempty"`
}

type Contacts struct {
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
}

// Condition is a single entry of the patient's condition list. The list is
// append/replace only; entries are never re-sorted or auto-deleted.
type Condition struct {
	Code         string     `json:"code"`
	System       string     `json:"system"`
	Description  string     `json:"description,omitempty"`
	Onset        *Date      `json:"onset,omitempty"`
	Status       string     `json:"status,omitempty"`
	RecordedAt   *time.Time `json:"recordedAt,omitempty"`
	EncounterRef *string    `json:"encounterRef,omitempty"`
}

// Meta identifies the origin node. ReplicaVector is reserved for a future
// consistency scheme and is passed through unexamined.
type Meta struct {
	SourceHospital string                 `json:"sourceHospital"`
	ReplicaVector  map[string]interface{} `json:"replicaVector,omitempty"`
}

// Update describes a partial mutation: nil sections are untouched, non-nil
// patches replace only the fields they carry. Conditions, when present,
// replace the stored list wholesale.
type Update struct {
	Identity     *IdentityPatch     `json:"identity,omitempty"`
	Demographics *DemographicsPatch `json:"demographics,omitempty"`
	Contacts     *ContactsPatch     `json:"contacts,omitempty"`
	Conditions   *[]Condition       `json:"conditions,omitempty"`
	Meta         *MetaPatch         `json:"meta,omitempty"`
}

type IdentityPatch struct {
	PatientID      *string `json:"patientId,omitempty"`
	MRN            *string `json:"mrn,omitempty"`
	NationalIDHash *string `json:"nationalIdHash,omitempty"`
}

type DemographicsPatch struct {
	GivenName  *string    `json:"givenName,omitempty"`
	FamilyName *string    `json:"familyName,omitempty"`
	DOB        *Date      `json:"dob,omitempty"`
	Sex        *string    `json:"sex,omitempty"`
	Gender     *string    `json:"gender,omitempty"`
	Deceased   *bool      `json:"deceased,omitempty"`
	DeceasedAt *time.Time `json:"deceasedAt,omitempty"`
	BloodType  *string    `json:"bloodType,omitempty"`
	HeightCm   *int       `json:"heightCm,omitempty"`
	WeightKg   *int       `json:"weightKg,omitempty"`
}

type ContactsPatch struct {
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
}

type MetaPatch struct {
	SourceHospital *string                `json:"sourceHospital,omitempty"`
	ReplicaVector  map[string]interface{} `json:"replicaVector,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u *Update) IsEmpty() bool {
	return u == nil ||
		(u.Identity == nil && u.Demographics == nil && u.Contacts == nil &&
			u.Conditions == nil && u.Meta == nil)
}

// Apply merges the update into p, touching only the supplied fields.
func (u *Update) Apply(p *Patient) {
	if u == nil {
		return
	}
	if ip := u.Identity; ip != nil {
		if ip.PatientID != nil {
			p.Identity.PatientID = *ip.PatientID
		}
		if ip.MRN != nil {
			p.Identity.MRN = ip.MRN
		}
		if ip.NationalIDHash != nil {
			p.Identity.NationalIDHash = ip.NationalIDHash
		}
	}
	if dp := u.Demographics; dp != nil {
		if dp.GivenName != nil {
			p.Demographics.GivenName = *dp.GivenName
		}
		if dp.FamilyName != nil {
			p.Demographics.FamilyName = *dp.FamilyName
		}
		if dp.DOB != nil {
			p.Demographics.DOB = *dp.DOB
		}
		if dp.Sex != nil {
			p.Demographics.Sex = dp.Sex
		}
		if dp.Gender != nil {
			p.Demographics.Gender = dp.Gender
		}
		if dp.Deceased != nil {
			p.Demographics.Deceased = *dp.Deceased
		}
		if dp.DeceasedAt != nil {
			p.Demographics.DeceasedAt = dp.DeceasedAt
		}
		if dp.BloodType != nil {
			p.Demographics.BloodType = dp.BloodType
		}
		if dp.HeightCm != nil {
			p.Demographics.HeightCm = dp.HeightCm
		}
		if dp.WeightKg != nil {
			p.Demographics.WeightKg = dp.WeightKg
		}
	}
	if cp := u.Contacts; cp != nil {
		if p.Contacts == nil {
			p.Contacts = &Contacts{}
		}
		if cp.Address != nil {
			p.Contacts.Address = cp.Address
		}
		if cp.Phone != nil {
			p.Contacts.Phone = cp.Phone
		}
		if cp.Email != nil {
			p.Contacts.Email = cp.Email
		}
	}
	if u.Conditions != nil {
		p.Conditions = *u.Conditions
	}
	if mp := u.Meta; mp != nil {
		if mp.SourceHospital != nil {
			p.Meta.SourceHospital = *mp.SourceHospital
		}
		if mp.ReplicaVector != nil {
			p.Meta.ReplicaVector = mp.ReplicaVector
		}
	}
}
