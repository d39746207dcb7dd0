package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/udaykr117/smartsched/internal/logging"
	"github.com/udaykr117/smartsched/internal/model"
	"github.com/udaykr117/smartsched/internal/scheduler"
	"github.com/udaykr117/smartsched/internal/store"
)

const maxBodyBytes = 1 << 20

type Server struct {
	port         int
	store        *store.Store
	engine       *scheduler.Engine
	autoGenerate bool
	logger       *logging.Logger
	now          func() time.Time
}

func NewServer(port int, st *store.Store, engine *scheduler.Engine, autoGenerate bool, logger *logging.Logger) *Server {
	return &Server{
		port:         port,
		store:        st,
		engine:       engine,
		autoGenerate: autoGenerate,
		logger:       logger.With("api"),
		now:          time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/addJob", allow(http.MethodPost, s.handleAddJob))
	mux.HandleFunc("/api/jobs", allow(http.MethodGet, s.handleJobs))
	mux.HandleFunc("/api/addMachine", allow(http.MethodPost, s.handleAddMachine))
	mux.HandleFunc("/api/machines", allow(http.MethodGet, s.handleMachines))
	mux.HandleFunc("/api/machineStatus", allow(http.MethodPost, s.handleMachineStatus))
	mux.HandleFunc("/api/addWorker", allow(http.MethodPost, s.handleAddWorker))
	mux.HandleFunc("/api/workers", allow(http.MethodGet, s.handleWorkers))
	mux.HandleFunc("/api/workerStatus", allow(http.MethodPost, s.handleWorkerStatus))
	mux.HandleFunc("/api/generateSchedule", allow(http.MethodPost, s.handleGenerate))
	mux.HandleFunc("/api/reschedule", allow(http.MethodPut, s.handleReschedule))
	mux.HandleFunc("/api/updateStatus", allow(http.MethodPost, s.handleUpdateStatus))
	mux.HandleFunc("/api/cancelSchedule", allow(http.MethodPost, s.handleCancel))
	mux.HandleFunc("/api/schedule", allow(http.MethodGet, s.handleSchedule))
	mux.HandleFunc("/api/dashboard", allow(http.MethodGet, s.handleDashboard))
	mux.HandleFunc("/api/stats", allow(http.MethodGet, s.handleStats))
	mux.HandleFunc("/api/passes", allow(http.MethodGet, s.handlePasses))
	return mux
}

// Start serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on http://localhost%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve api: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown api: %w", err)
		}
		return nil
	}
}

func allow(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// orEmpty keeps empty lists encoding as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// statusFor maps store and validation errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrMissingID),
		errors.Is(err, model.ErrMissingName),
		errors.Is(err, model.ErrInvalidProcessingTime),
		errors.Is(err, model.ErrInvalidDueDate),
		errors.Is(err, model.ErrInvalidPriority),
		errors.Is(err, model.ErrMissingMachine),
		errors.Is(err, model.ErrMissingSkill),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidShift):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return false
	}
	return true
}

// writeResult reports an engine pass; a failed pass is a server error.
func writeResult(w http.ResponseWriter, res scheduler.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

// refreshStatus brings resource status up to date before a read. A failed sync is logged
// and the read proceeds on the last known state.
func (s *Server) refreshStatus(ctx context.Context) {
	if res := s.engine.SyncStatus(ctx); !res.Success {
		s.logger.Warnf("status sync before read failed err=%s", res.Error)
	}
}

type addJobResponse struct {
	Job      model.Job         `json:"job"`
	Schedule *scheduler.Result `json:"schedule,omitempty"`
}

func (s *Server) handleAddJob(w http.ResponseWriter, r *http.Request) {
	var in model.JobInput
	if !decodeBody(w, r, &in) {
		return
	}
	job, err := in.ToJob()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.store.CreateJob(r.Context(), &job); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.logger.Infof("job added id=%s priority=%s", job.ID, job.Priority)
	saved, err := s.store.GetJob(r.Context(), job.ID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	resp := addJobResponse{Job: *saved}
	if s.autoGenerate {
		res := s.engine.Generate(r.Context())
		resp.Schedule = &res
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(jobs))
}

func (s *Server) handleAddMachine(w http.ResponseWriter, r *http.Request) {
	var in model.MachineInput
	if !decodeBody(w, r, &in) {
		return
	}
	m, err := in.ToMachine()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.store.UpsertMachine(r.Context(), m); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	saved, err := s.store.GetMachine(r.Context(), m.ID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleMachines(w http.ResponseWriter, r *http.Request) {
	s.refreshStatus(r.Context())
	machines, err := s.store.ListMachines(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(machines))
}

type statusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleMachineStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.SetMachineStatus(r.Context(), req.ID, model.MachineStatus(req.Status)); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.logger.Infof("machine status id=%s status=%s", req.ID, req.Status)
	m, err := s.store.GetMachine(r.Context(), req.ID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleAddWorker(w http.ResponseWriter, r *http.Request) {
	var in model.WorkerInput
	if !decodeBody(w, r, &in) {
		return
	}
	wk, err := in.ToWorker()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := s.store.UpsertWorker(r.Context(), wk); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	saved, err := s.store.GetWorker(r.Context(), wk.ID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	s.refreshStatus(r.Context())
	workers, err := s.store.ListWorkers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(workers))
}

func (s *Server) handleWorkerStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.store.SetWorkerStatus(r.Context(), req.ID, model.WorkerStatus(req.Status)); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.logger.Infof("worker status id=%s status=%s", req.ID, req.Status)
	wk, err := s.store.GetWorker(r.Context(), req.ID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, wk)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.engine.Generate(r.Context()))
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.engine.Reschedule(r.Context()))
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.engine.SyncStatus(r.Context()))
}

type cancelRequest struct {
	ScheduleID int64 `json:"schedule_id"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ScheduleID <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("schedule_id is required"))
		return
	}
	if err := s.store.CancelEntry(r.Context(), req.ScheduleID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.logger.Infof("schedule entry cancelled id=%d", req.ScheduleID)
	// the released resources may be Busy for an entry that no longer runs
	s.refreshStatus(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "schedule_id": req.ScheduleID})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	status := model.EntryStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", model.ErrInvalidStatus, status))
		return
	}
	s.refreshStatus(r.Context())
	entries, err := s.store.ListSchedule(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(entries))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.refreshStatus(r.Context())
	d, err := s.store.Dashboard(r.Context(), s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetPassStats(r.Context(), s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	passes, err := s.store.GetRecentPasses(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, passes)
}
