package exchange

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cleared-dev/coinledger/internal/model"
)

// JSONCodec imports either a bare transaction array or a full profile object
// and exports the bare array.
type JSONCodec struct{}

func (JSONCodec) Format() string { return FormatJSON }

func (JSONCodec) Decode(r io.Reader) (Payload, error) {
	return decodeJSON(r, FormatJSON)
}

func (JSONCodec) Encode(w io.Writer, doc Document) error {
	return writeJSON(w, model.Records(doc.Transactions))
}

// ProfileCodec imports like JSONCodec and exports the full profile object,
// settings included.
type ProfileCodec struct{}

func (ProfileCodec) Format() string { return FormatProfile }

func (ProfileCodec) Decode(r io.Reader) (Payload, error) {
	return decodeJSON(r, FormatProfile)
}

func (ProfileCodec) Encode(w io.Writer, doc Document) error {
	return writeJSON(w, doc.profileData())
}

func decodeJSON(r io.Reader, format string) (Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, fmt.Errorf("reading import: %w", err)
	}
	v, err := model.DecodeJSON(data)
	if err != nil {
		return Payload{}, model.Invalid("import", err.Error())
	}
	switch x := v.(type) {
	case []any:
		return Payload{Format: format, Records: x}, nil
	case map[string]any:
		raw := model.RawFromObject(x)
		name, _ := x["profile_name"].(string)
		return Payload{Format: format, ProfileName: name, Records: raw.Transactions, Settings: raw.Settings}, nil
	default:
		return Payload{}, model.Invalid("import", fmt.Sprintf("top-level value is %T, want array or object", v))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}
