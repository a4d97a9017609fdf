package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultProfile is the profile every registry reports, even before it exists.
const DefaultProfile = "Default"

// TransactionRecord is a transaction as persisted and exported.
type TransactionRecord struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	Amount          int64  `json:"amount"`
	Source          string `json:"source"`
	PreviousBalance int64  `json:"previous_balance"`
}

// ProfileData is the persisted document for one profile, identical across
// the local file, remote document field and session entry.
type ProfileData struct {
	ProfileName  string              `json:"profile_name"`
	LastUpdated  string              `json:"last_updated"`
	Transactions []TransactionRecord `json:"transactions"`
	Settings     Settings            `json:"settings"`
}

// NewProfileData builds the persisted document for a profile.
func NewProfileData(name string, txs []Transaction, settings Settings, now time.Time) ProfileData {
	return ProfileData{
		ProfileName:  name,
		LastUpdated:  FormatTimestamp(now),
		Transactions: Records(txs),
		Settings:     settings.Clone(),
	}
}

// Raw returns the loosely-typed view of p, as a backend would load it.
func (p ProfileData) Raw() RawProfile {
	data, err := json.Marshal(p)
	if err != nil {
		// ProfileData only holds JSON-safe fields.
		panic(fmt.Sprintf("marshaling profile data: %v", err))
	}
	raw, err := DecodeRawProfile(data)
	if err != nil {
		panic(fmt.Sprintf("decoding profile data: %v", err))
	}
	return raw
}

// RawProfile is a profile document before validation. Records and settings are
// kept as decoded JSON values (numbers as json.Number).
type RawProfile struct {
	Transactions []any
	Settings     map[string]any // nil when absent
}

// Empty reports whether nothing was loaded.
func (r RawProfile) Empty() bool {
	return len(r.Transactions) == 0 && r.Settings == nil
}

// DecodeRawProfile decodes a full profile document. A missing or non-list
// "transactions" field yields no records; a non-object "settings" field is
// treated as absent.
func DecodeRawProfile(data []byte) (RawProfile, error) {
	v, err := DecodeJSON(data)
	if err != nil {
		return RawProfile{}, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return RawProfile{}, fmt.Errorf("profile document is %T, want object", v)
	}
	return RawFromObject(obj), nil
}

// RawFromObject extracts transactions and settings from a decoded document.
func RawFromObject(obj map[string]any) RawProfile {
	var raw RawProfile
	if txs, ok := obj["transactions"].([]any); ok {
		raw.Transactions = txs
	}
	if s, ok := obj["settings"].(map[string]any); ok {
		raw.Settings = s
	}
	return raw
}

// DecodeJSON decodes a single JSON value, keeping numbers as json.Number.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	return v, nil
}
