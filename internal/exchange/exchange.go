// Package exchange decodes imported transaction data and encodes exports.
// Decoded records are left loosely typed; callers run them through repair.
package exchange

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/cleared-dev/coinledger/internal/model"
)

// Payload is decoded import data.
type Payload struct {
	Format      string
	ProfileName string         // set when a full profile object was imported
	Records     []any          // raw transaction records
	Settings    map[string]any // nil unless the input carried settings
}

// Raw returns the payload as a loaded profile.
func (p Payload) Raw() model.RawProfile {
	return model.RawProfile{Transactions: p.Records, Settings: p.Settings}
}

// Document is what gets exported for one profile.
type Document struct {
	ProfileName  string
	Transactions []model.Transaction // ascending
	Settings     model.Settings
	Now          time.Time
}

func (d Document) profileData() model.ProfileData {
	return model.NewProfileData(d.ProfileName, d.Transactions, d.Settings, d.Now)
}

// Codec reads and writes one exchange format.
type Codec interface {
	Format() string
	Decode(r io.Reader) (Payload, error)
	Encode(w io.Writer, doc Document) error
}

// Registry holds codecs by format name.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry creates an empty codec registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// Register adds a codec. Panics on duplicate format.
func (r *Registry) Register(c Codec) {
	key := strings.ToLower(c.Format())
	if _, ok := r.codecs[key]; ok {
		panic("duplicate exchange format: " + key)
	}
	r.codecs[key] = c
}

// Get returns the codec for format, or nil.
func (r *Registry) Get(format string) Codec {
	return r.codecs[strings.ToLower(format)]
}

// Formats lists the registered format names, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Lookup is Get with an error naming the known formats.
func (r *Registry) Lookup(format string) (Codec, error) {
	c := r.Get(format)
	if c == nil {
		return nil, model.Invalid("format", fmt.Sprintf("unknown format %q (known: %s)", format, strings.Join(r.Formats(), ", ")))
	}
	return c, nil
}

// Decode reads all of r and decodes it with the codec for format. An empty
// format detects JSON or CSV from the content.
func (r *Registry) Decode(format string, in io.Reader) (Payload, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return Payload{}, fmt.Errorf("reading import: %w", err)
	}
	if format == "" {
		format = Detect(data)
	}
	c, err := r.Lookup(format)
	if err != nil {
		return Payload{}, err
	}
	return c.Decode(bytes.NewReader(data))
}

// DefaultRegistry returns a registry with all built-in codecs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(JSONCodec{})
	r.Register(ProfileCodec{})
	r.Register(CSVCodec{})
	return r
}

// Detect guesses the format of data: JSON when it starts with '[' or '{',
// CSV otherwise.
func Detect(data []byte) string {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatCSV
}

// Format names.
const (
	FormatJSON    = "json"
	FormatProfile = "profile"
	FormatCSV     = "csv"
)
