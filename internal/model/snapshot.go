package model

import (
	"encoding/json"
	"time"
)

// Dataset is the whole-ledger snapshot: every entity collection plus the
// singleton settings and the lastUpdated stamp that orders reconciliation.
// It serializes to the single blob exchanged with the remote store.
type Dataset struct {
	Users           []User                `json:"users"`
	Chits           []ChitGroup           `json:"chits"`
	Members         []Member              `json:"members"`
	Memberships     []GroupMembership     `json:"memberships"`
	Installments    []InstallmentSchedule `json:"installments"`
	Allotments      []Allotment           `json:"allotments"`
	Payments        []Payment             `json:"payments"`
	PaymentRequests []PaymentRequest      `json:"paymentRequests"`
	Settings        MasterSettings        `json:"settings"`
	LastUpdated     time.Time             `json:"lastUpdated"`
}

// NewDataset returns an empty dataset with defaulted settings.
func NewDataset() *Dataset {
	ds := &Dataset{}
	ds.Normalize()
	return ds
}

// Empty reports whether the dataset carries no financial data. Users and
// settings alone do not count: a freshly seeded client is still "empty" for
// the reconciliation data-loss guard.
func (d *Dataset) Empty() bool {
	return d == nil || (len(d.Members) == 0 && len(d.Chits) == 0)
}

// Normalize replaces nil collections with empty ones and fills defaulted
// settings and chit statuses, so a partially-shaped decode never leaves the
// dataset with surprises.
func (d *Dataset) Normalize() {
	if d.Users == nil {
		d.Users = []User{}
	}
	if d.Chits == nil {
		d.Chits = []ChitGroup{}
	}
	for i := range d.Chits {
		if d.Chits[i].Status == "" {
			d.Chits[i].Status = ChitStatusActive
		}
	}
	if d.Members == nil {
		d.Members = []Member{}
	}
	if d.Memberships == nil {
		d.Memberships = []GroupMembership{}
	}
	if d.Installments == nil {
		d.Installments = []InstallmentSchedule{}
	}
	if d.Allotments == nil {
		d.Allotments = []Allotment{}
	}
	if d.Payments == nil {
		d.Payments = []Payment{}
	}
	if d.PaymentRequests == nil {
		d.PaymentRequests = []PaymentRequest{}
	}
	if d.Settings.MastersPasswordHash == "" && d.Settings.WhatsappConfig == (WhatsappConfig{}) {
		d.Settings = DefaultMasterSettings()
	}
}

// Encode serializes the dataset to its blob form.
func (d *Dataset) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// DecodeDataset deserializes a snapshot blob, tolerating missing fields and
// malformed input. A blob that cannot be parsed degrades to an empty
// dataset rather than failing initialization.
func DecodeDataset(b []byte) *Dataset {
	ds := &Dataset{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, ds); err != nil {
			ds = &Dataset{}
		}
	}
	ds.Normalize()
	return ds
}

// Clone returns a deep copy, isolating callers from later mutation.
func (d *Dataset) Clone() *Dataset {
	b, err := json.Marshal(d)
	if err != nil {
		return NewDataset()
	}
	return DecodeDataset(b)
}
