package exchange

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/coinledger/internal/model"
)

// Header is the CSV header written on export.
const Header = "id,date,amount,source,previous_balance"

const (
	numFields   = 5
	colID       = 0
	colDate     = 1
	colAmount   = 2
	colSource   = 3
	colPrevious = 4
)

// CSVCodec reads and writes transactions as CSV. Columns are matched by
// header name on import, so extra or reordered columns are fine.
type CSVCodec struct{}

func (CSVCodec) Format() string { return FormatCSV }

func (CSVCodec) Decode(r io.Reader) (Payload, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Payload{}, model.Invalid("import", fmt.Sprintf("reading CSV: %v", err))
	}
	if len(records) == 0 {
		return Payload{Format: FormatCSV}, nil
	}

	cols := make(map[string]int)
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		cols[name] = i
	}
	for _, required := range []string{"date", "amount", "source"} {
		if _, ok := cols[required]; !ok {
			return Payload{}, model.Invalid("import", fmt.Sprintf("CSV header missing %q column", required))
		}
	}

	out := make([]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		out = append(out, UnmarshalRecord(rec, cols))
	}
	return Payload{Format: FormatCSV, Records: out}, nil
}

func (CSVCodec) Encode(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, tx := range doc.Transactions {
		if err := cw.Write(MarshalRecord(tx.Record())); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRecord converts a record to a CSV row.
func MarshalRecord(rec model.TransactionRecord) []string {
	row := make([]string, numFields)
	row[colID] = rec.ID
	row[colDate] = rec.Date
	row[colAmount] = strconv.FormatInt(rec.Amount, 10)
	row[colSource] = rec.Source
	row[colPrevious] = strconv.FormatInt(rec.PreviousBalance, 10)
	return row
}

// UnmarshalRecord converts a CSV row to a raw record keyed like the JSON
// form. Empty cells are left out; numeric cells become json.Number so they
// are coerced exactly like JSON input.
func UnmarshalRecord(row []string, cols map[string]int) map[string]any {
	m := make(map[string]any, numFields)
	cell := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return "", false
		}
		v := row[i]
		return v, strings.TrimSpace(v) != ""
	}
	if v, ok := cell("id"); ok {
		m["id"] = strings.TrimSpace(v)
	}
	if v, ok := cell("date"); ok {
		m["date"] = strings.TrimSpace(v)
	}
	if v, ok := cell("amount"); ok {
		m["amount"] = json.Number(strings.TrimSpace(v))
	}
	if v, ok := cell("source"); ok {
		m["source"] = v
	}
	if v, ok := cell("previous_balance"); ok {
		m["previous_balance"] = json.Number(strings.TrimSpace(v))
	}
	return m
}
