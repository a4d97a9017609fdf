package httpapi

import (
	"bytes"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/cleared-dev/coinledger/internal/exchange"
	"github.com/cleared-dev/coinledger/internal/ledger"
	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/report"
)

type profileRequest struct {
	ProfileName string `json:"profile_name"`
}

type transactionRequest struct {
	Amount int64  `json:"amount"`
	Source string `json:"source"`
	Date   string `json:"date,omitempty"`
}

func (req transactionRequest) timestamp() (time.Time, error) {
	if strings.TrimSpace(req.Date) == "" {
		return time.Time{}, nil
	}
	ts, err := model.ParseTimestamp(req.Date, time.Local)
	if err != nil {
		return time.Time{}, model.Invalid("date", err.Error())
	}
	return ts, nil
}

type settingsRequest struct {
	Goal         *int64              `json:"goal,omitempty"`
	DarkMode     *bool               `json:"dark_mode,omitempty"`
	QuickActions []model.QuickAction `json:"quick_actions,omitempty"`
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": s.app.Profiles.List(ctx),
		"active":   s.app.Profiles.Active(ctx),
	})
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	unlock, err := s.lock(req.ProfileName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer unlock()
	res, err := s.app.Profiles.Create(r.Context(), req.ProfileName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"profile": req.ProfileName,
		"storage": newStorageInfo(res),
	})
}

func (s *Server) getActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"profile": s.app.Profiles.Active(r.Context())})
}

func (s *Server) setActive(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.app.Profiles.SetActive(r.Context(), req.ProfileName); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": req.ProfileName})
}

// open locks the profile named in the route and loads its ledger. The
// caller must call unlock once done, even on error.
func (s *Server) open(r *http.Request) (l *ledger.Ledger, unlock func(), err error) {
	unlock, err = s.lock(mux.Vars(r)["profile"])
	if err != nil {
		return nil, func() {}, err
	}
	l, err = s.app.Open(r.Context(), mux.Vars(r)["profile"])
	return l, unlock, err
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	l, unlock, err := s.open(r)
	defer unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Summarize(l))
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order, err := ledger.ParseOrder(q.Get("order"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	filter, err := parseFilter(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, unlock, err := s.open(r)
	defer unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	matched := filter.Apply(slices.Collect(l.History(order)))
	records := make([]model.TransactionRecord, 0, len(matched.Transactions))
	for _, tx := range matched.Transactions {
		records = append(records, tx.Record())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": records,
		"earned":       matched.Earned,
		"sources":      report.Sources(l.Transactions()),
		"balance":      l.Balance(),
	})
}

// parseFilter reads from, to, source, type and search.
func parseFilter(q url.Values) (report.Filter, error) {
	f := report.Filter{Source: q.Get("source"), Search: q.Get("search")}
	var err error
	if f.Kind, err = report.ParseKind(q.Get("type")); err != nil {
		return f, err
	}
	for _, bound := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := strings.TrimSpace(q.Get(bound.name))
		if v == "" {
			continue
		}
		if *bound.dst, err = model.ParseTimestamp(v, time.Local); err != nil {
			return f, model.Invalid(bound.name, err.Error())
		}
	}
	return f, f.Validate()
}

func (s *Server) addTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ts, err := req.timestamp()
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, unlock, err := s.open(r)
	defer unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	balance, res, err := l.Add(r.Context(), ledger.AddParams{Amount: req.Amount, Source: req.Source, Timestamp: ts})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"balance": balance,
		"storage": newStorageInfo(res),
	})
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	ts, err := req.timestamp()
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, unlock, err := s.open(r)
	defer unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := l.Update(r.Context(), mux.Vars(r)["id"], ledger.UpdateParams{Amount: req.Amount, Source: req.Source, Timestamp: ts})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": l.Balance(),
		"storage": newStorageInfo(res),
	})
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	l, unlock, err := s.open(r)
	defer unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := l.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": l.Balance(),
		"storage": newStorageInfo(res),
	})
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	l, unlock, err := s.open(r)
	defer unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	settings := l.Settings()
	if req.Goal != nil {
		settings.Goal = *req.Goal
	}
	if req.DarkMode != nil {
		settings.DarkMode = *req.DarkMode
	}
	if req.QuickActions != nil {
		settings.QuickActions = slices.Clone(req.QuickActions)
	}
	res, err := l.ReplaceSettings(r.Context(), settings)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"settings": l.Settings(),
		"storage":  newStorageInfo(res),
	})
}

func (s *Server) importData(w http.ResponseWriter, r *http.Request) {
	payload, err := s.app.Exchange.Decode(r.URL.Query().Get("format"), r.Body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, unlock, err := s.open(r)
	defer unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, res, err := l.Import(r.Context(), payload)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added":             result.Added,
		"dropped":           result.Report.Dropped,
		"repaired":          result.Report.Repaired,
		"settings_replaced": result.SettingsReplaced,
		"balance":           l.Balance(),
		"storage":           newStorageInfo(res),
	})
}

func (s *Server) exportData(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = exchange.FormatJSON
	}
	codec, err := s.app.Exchange.Lookup(format)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, unlock, err := s.open(r)
	defer unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := codec.Encode(&buf, s.app.ExportDocument(l)); err != nil {
		s.writeError(w, err)
		return
	}
	contentType := "application/json"
	if codec.Format() == exchange.FormatCSV {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+l.Profile()+`.`+extension(codec.Format())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func extension(format string) string {
	if format == exchange.FormatCSV {
		return "csv"
	}
	return "json"
}
