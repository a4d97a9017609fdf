// Package httpapi exposes the ledger over a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/coinledger/internal/app"
	"github.com/cleared-dev/coinledger/internal/model"
	"github.com/cleared-dev/coinledger/internal/storage"
)

// Server handles API requests. Each request opens the profile's ledger
// fresh under the profile's lock, since opening may write repairs back.
type Server struct {
	app   *app.App
	log   logrus.FieldLogger
	locks sync.Map // profile name -> *sync.Mutex
}

// NewServer creates a Server.
func NewServer(a *app.App) *Server {
	return &Server{app: a, log: a.Log}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/profiles", s.listProfiles).Methods(http.MethodGet)
	api.HandleFunc("/profiles", s.createProfile).Methods(http.MethodPost)
	api.HandleFunc("/active-profile", s.getActive).Methods(http.MethodGet)
	api.HandleFunc("/active-profile", s.setActive).Methods(http.MethodPut)

	p := api.PathPrefix("/profiles/{profile}").Subrouter()
	p.HandleFunc("/summary", s.summary).Methods(http.MethodGet)
	p.HandleFunc("/transactions", s.listTransactions).Methods(http.MethodGet)
	p.HandleFunc("/transactions", s.addTransaction).Methods(http.MethodPost)
	p.HandleFunc("/transactions/{id}", s.updateTransaction).Methods(http.MethodPut)
	p.HandleFunc("/transactions/{id}", s.deleteTransaction).Methods(http.MethodDelete)
	p.HandleFunc("/settings", s.updateSettings).Methods(http.MethodPut)
	p.HandleFunc("/import", s.importData).Methods(http.MethodPost)
	p.HandleFunc("/export", s.exportData).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusNotFound, "not found")
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("starting server")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// lock serializes work on one profile. Invalid names are rejected before a
// mutex is stored for them.
func (s *Server) lock(profile string) (func(), error) {
	if err := model.ValidateProfileName(profile); err != nil {
		return nil, err
	}
	v, _ := s.locks.LoadOrStore(profile, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock, nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeError maps core errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrAmountZero):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, model.ErrPersistence):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	writeErr(w, status, err.Error())
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.Invalid("body", err.Error())
	}
	return nil
}

// storageInfo reports where a mutation was saved.
type storageInfo struct {
	Backend  string `json:"backend"`
	Tier     string `json:"tier"`
	FellBack bool   `json:"fell_back"`
	Durable  bool   `json:"durable"`
	Notice   string `json:"notice,omitempty"`
}

func newStorageInfo(res storage.SaveResult) storageInfo {
	return storageInfo{
		Backend:  res.Backend,
		Tier:     res.Tier.String(),
		FellBack: res.FellBack,
		Durable:  res.Durable(),
		Notice:   app.StorageNotice(res),
	}
}
