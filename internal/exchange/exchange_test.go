package exchange

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/coinledger/internal/model"
)

func sampleDoc() Document {
	ts := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	return Document{
		ProfileName: "Main",
		Transactions: []model.Transaction{
			{ID: "a", Timestamp: ts, Amount: 50, Source: "Login"},
			{ID: "b", Timestamp: ts.Add(time.Hour), Amount: -20, Source: "Shop, outlet", PreviousBalance: 50},
		},
		Settings: model.Settings{Goal: 100, QuickActions: []model.QuickAction{}},
		Now:      ts,
	}
}

func TestDetect(t *testing.T) {
	assert.Equal(t, FormatJSON, Detect([]byte(`  [{"a":1}]`)))
	assert.Equal(t, FormatJSON, Detect([]byte("\n{}")))
	assert.Equal(t, FormatCSV, Detect([]byte("id,date,amount,source\n")))
	assert.Equal(t, FormatCSV, Detect(nil))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"csv", "json", "profile"}, r.Formats())
	assert.NotNil(t, r.Get("JSON"))
	assert.Nil(t, r.Get("xml"))

	_, err := r.Lookup("xml")
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Panics(t, func() { r.Register(CSVCodec{}) })
}

func TestJSONDecode_Array(t *testing.T) {
	p, err := DefaultRegistry().Decode("", strings.NewReader(`[{"date":"2025-01-15","amount":5,"source":"Ads"}]`))
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, p.Format)
	require.Len(t, p.Records, 1)
	assert.Nil(t, p.Settings)
	assert.Equal(t, json.Number("5"), p.Records[0].(map[string]any)["amount"])
}

func TestJSONDecode_Object(t *testing.T) {
	in := `{"profile_name":"Alt","transactions":[{"date":"2025-01-15","amount":5,"source":"Ads"}],"settings":{"goal":300}}`
	p, err := JSONCodec{}.Decode(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "Alt", p.ProfileName)
	assert.Len(t, p.Records, 1)
	assert.Equal(t, json.Number("300"), p.Settings["goal"])
	assert.False(t, p.Raw().Empty())
}

func TestJSONDecode_Invalid(t *testing.T) {
	for _, in := range []string{`{"broken"`, `42`, `"text"`} {
		_, err := JSONCodec{}.Decode(strings.NewReader(in))
		assert.ErrorIs(t, err, model.ErrValidation, in)
	}
}

func TestJSONEncode_BareArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONCodec{}.Encode(&buf, sampleDoc()))

	var got []model.TransactionRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, int64(50), got[1].PreviousBalance)
	assert.Equal(t, "2025-01-15T10:30:00Z", got[0].Date)
}

func TestProfileEncode_FullObject(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ProfileCodec{}.Encode(&buf, sampleDoc()))

	p, err := ProfileCodec{}.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Main", p.ProfileName)
	assert.Len(t, p.Records, 2)
	assert.Equal(t, json.Number("100"), p.Settings["goal"])
}

func TestCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVCodec{}.Encode(&buf, sampleDoc()))
	assert.True(t, strings.HasPrefix(buf.String(), Header+"\n"))
	assert.Contains(t, buf.String(), `"Shop, outlet"`)

	p, err := DefaultRegistry().Decode("", &buf)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, p.Format)
	require.Len(t, p.Records, 2)
	rec := p.Records[1].(map[string]any)
	assert.Equal(t, "b", rec["id"])
	assert.Equal(t, json.Number("-20"), rec["amount"])
	assert.Equal(t, "Shop, outlet", rec["source"])
	assert.Equal(t, json.Number("50"), rec["previous_balance"])
}

func TestCSVDecode_ReorderedColumnsAndBlanks(t *testing.T) {
	in := "Source,Amount,Date,Note\nLogin,50,2025-01-15,x\nAds,,2025-01-16\n"
	p, err := CSVCodec{}.Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, p.Records, 2)

	first := p.Records[0].(map[string]any)
	assert.Equal(t, "Login", first["source"])
	assert.NotContains(t, first, "id")

	second := p.Records[1].(map[string]any)
	assert.NotContains(t, second, "amount", "blank cell is left out")
}

func TestCSVDecode_Errors(t *testing.T) {
	_, err := CSVCodec{}.Decode(strings.NewReader("id,date\n1,2025-01-01\n"))
	assert.ErrorIs(t, err, model.ErrValidation)

	p, err := CSVCodec{}.Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, p.Records)
}
