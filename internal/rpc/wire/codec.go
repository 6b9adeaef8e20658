package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fedehr/fedehr/internal/record"
)

// EncodePatient renders a patient into its wire representation. Every nested
// section becomes a generic structured Value, so fields added to the model
// appear on the wire without a schema change.
func EncodePatient(p *record.Patient) (*Patient, error) {
	msg := &Patient{
		InternalID:  p.InternalID.String(),
		Version:     p.Version,
		LastUpdated: p.LastUpdated.Format(time.RFC3339Nano),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339Nano),
	}

	var err error
	if msg.Identity, err = structValue(p.Identity); err != nil {
		return nil, err
	}
	if msg.Demographics, err = structValue(p.Demographics); err != nil {
		return nil, err
	}
	if p.Contacts != nil {
		if msg.Contacts, err = structValue(p.Contacts); err != nil {
			return nil, err
		}
	}
	for _, cond := range p.Conditions {
		v, err := structValue(cond)
		if err != nil {
			return nil, err
		}
		msg.Conditions = append(msg.Conditions, v)
	}
	if msg.Meta, err = structValue(p.Meta); err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodePatient re-hydrates a wire patient into the domain model. Date and
// date-time fields are coerced by name through the TimeFields registry;
// unregistered fields pass through untouched and are dropped by the typed
// model rather than failing the decode.
func DecodePatient(msg *Patient) (*record.Patient, error) {
	doc := map[string]interface{}{}
	if msg.InternalID != "" {
		id, err := uuid.Parse(msg.InternalID)
		if err != nil {
			return nil, fmt.Errorf("wire: decode internalId: %w", err)
		}
		doc["internalId"] = id
	}
	doc["version"] = msg.Version
	for key, raw := range map[string]string{
		"lastUpdated": msg.LastUpdated,
		"createdAt":   msg.CreatedAt,
		"updatedAt":   msg.UpdatedAt,
	} {
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("wire: decode %s: %w", key, err)
		}
		doc[key] = t
	}

	if msg.Identity != nil {
		doc["identity"] = decodeValue("identity", msg.Identity)
	}
	if msg.Demographics != nil {
		doc["demographics"] = decodeValue("demographics", msg.Demographics)
	}
	if msg.Contacts != nil {
		doc["contacts"] = decodeValue("contacts", msg.Contacts)
	}
	if msg.Conditions != nil {
		items := make([]interface{}, 0, len(msg.Conditions))
		for _, cond := range msg.Conditions {
			items = append(items, decodeValue("conditions", cond))
		}
		doc["conditions"] = items
	}
	if msg.Meta != nil {
		doc["meta"] = decodeValue("meta", msg.Meta)
	}

	p := &record.Patient{}
	if err := rehydrate(doc, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodeCreate converts a create request's sections into a fresh patient.
// Bookkeeping fields (internal id, version, timestamps) are left for the
// repository adapter to stamp.
func DecodeCreate(req *CreatePatientRequest) (*record.Patient, error) {
	return DecodePatient(&Patient{
		Identity:     req.Identity,
		Demographics: req.Demographics,
		Contacts:     req.Contacts,
		Conditions:   req.Conditions,
		Meta:         req.Meta,
	})
}

// DecodeUpdate converts an update request into a partial-update description.
// Only sections present on the wire appear in the result.
func DecodeUpdate(req *UpdatePatientRequest) (*record.Update, error) {
	doc := map[string]interface{}{}
	if req.Identity != nil {
		doc["identity"] = decodeValue("identity", req.Identity)
	}
	if req.Demographics != nil {
		doc["demographics"] = decodeValue("demographics", req.Demographics)
	}
	if req.Contacts != nil {
		doc["contacts"] = decodeValue("contacts", req.Contacts)
	}
	if req.Conditions != nil {
		items := make([]interface{}, 0, len(*req.Conditions))
		for _, cond := range *req.Conditions {
			items = append(items, decodeValue("conditions", cond))
		}
		doc["conditions"] = items
	}
	if req.Meta != nil {
		doc["meta"] = decodeValue("meta", req.Meta)
	}

	upd := &record.Update{}
	if err := rehydrate(doc, upd); err != nil {
		return nil, err
	}
	return upd, nil
}

// decodeValue lowers a Value into plain Go data, applying the time registry
// by field name at any depth. List items inherit the list's field name.
func decodeValue(name string, v *Value) interface{} {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindString:
		if coerced, ok := CoerceTime(name, v.Str); ok {
			return coerced
		}
		return v.Str
	case KindStruct:
		m := make(map[string]interface{}, len(v.Fields))
		for _, f := range v.Fields {
			m[f.Key] = decodeValue(f.Key, f.Value)
		}
		return m
	case KindList:
		items := make([]interface{}, 0, len(v.Items))
		for _, item := range v.Items {
			items = append(items, decodeValue(name, item))
		}
		return items
	}
	return nil
}

func structValue(section interface{}) (*Value, error) {
	raw, err := json.Marshal(section)
	if err != nil {
		return nil, fmt.Errorf("wire: encode section: %w", err)
	}
	return FromJSON(raw)
}

func rehydrate(doc map[string]interface{}, target interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("wire: decode document: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("wire: decode document: %w", err)
	}
	return nil
}
