// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/macross/internal/api/job"
	"github.com/newthinker/macross/internal/api/response"
	"github.com/newthinker/macross/internal/backtest"
	"github.com/newthinker/macross/internal/core"
	"go.uber.org/zap"
)

const (
	backtestJobType        = "backtest"
	defaultBacktestTimeout = 5 * time.Minute
)

// BacktestRequest is the request body for starting a backtest.
// Omitted fields fall back to the server defaults.
type BacktestRequest struct {
	Symbol         string `json:"symbol"`
	Start          string `json:"start,omitempty"` // YYYY-MM-DD
	End            string `json:"end,omitempty"`   // YYYY-MM-DD, exclusive
	Fast           int    `json:"fast,omitempty"`
	Slow           int    `json:"slow,omitempty"`
	PeriodsPerYear int    `json:"periods_per_year,omitempty"`
}

// Runner executes a backtest, typically *backtest.Backtester.
type Runner interface {
	Run(ctx context.Context, p backtest.Params) (*backtest.Result, error)
}

// JobsGauge receives the number of unfinished jobs.
type JobsGauge interface {
	SetJobsActive(jobType string, count int)
}

// Summary is the job result returned to API clients.
type Summary struct {
	Symbol      string         `json:"symbol"`
	Strategy    string         `json:"strategy"`
	Params      ParamsView     `json:"params"`
	Bars        int            `json:"bars"`
	FirstDate   string         `json:"first_date,omitempty"`
	LastDate    string         `json:"last_date,omitempty"`
	Stats       backtest.Stats `json:"stats"`
	MarketCum   float64        `json:"market_cum"`
	StrategyCum float64        `json:"strategy_cum"`
	Events      []core.Signal  `json:"events"`
}

// ParamsView echoes the effective run parameters with plain dates.
type ParamsView struct {
	Start          string `json:"start"`
	End            string `json:"end"`
	Fast           int    `json:"fast"`
	Slow           int    `json:"slow"`
	PeriodsPerYear int    `json:"periods_per_year"`
}

// Summarize converts a backtest result into its API form.
func Summarize(r *backtest.Result) Summary {
	s := Summary{
		Symbol:   r.Params.Symbol,
		Strategy: r.Strategy,
		Params: ParamsView{
			Start:          r.Params.Start.Format(time.DateOnly),
			End:            r.Params.End.Format(time.DateOnly),
			Fast:           r.Params.FastWindow,
			Slow:           r.Params.SlowWindow,
			PeriodsPerYear: r.Params.PeriodsPerYear,
		},
		Stats:       r.Stats,
		MarketCum:   1,
		StrategyCum: 1,
		Events:      r.Events,
	}
	if s.Events == nil {
		s.Events = []core.Signal{}
	}

	s.Bars = r.Series.Len()
	if s.Bars > 0 {
		first := r.Series.Rows[0]
		last := r.Series.Rows[s.Bars-1]
		s.FirstDate = first.Date.Format(time.DateOnly)
		s.LastDate = last.Date.Format(time.DateOnly)
		s.MarketCum = last.MarketCum
		s.StrategyCum = last.StrategyCum
	}
	return s
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore *job.Store
	runner   Runner
	defaults backtest.Params
	timeout  time.Duration
	gauge    JobsGauge
	logger   *zap.Logger
}

// Option configures a BacktestHandler.
type Option func(*BacktestHandler)

// WithTimeout bounds each background run.
func WithTimeout(d time.Duration) Option {
	return func(h *BacktestHandler) { h.timeout = d }
}

// WithJobsGauge reports active job counts.
func WithJobsGauge(g JobsGauge) Option {
	return func(h *BacktestHandler) { h.gauge = g }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *BacktestHandler) { h.logger = logger }
}

// NewBacktestHandler creates a new backtest handler. defaults supplies the
// range and windows for fields a request leaves out.
func NewBacktestHandler(jobStore *job.Store, runner Runner, defaults backtest.Params, opts ...Option) *BacktestHandler {
	h := &BacktestHandler{
		jobStore: jobStore,
		runner:   runner,
		defaults: defaults.WithDefaults(),
		timeout:  defaultBacktestTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrMalformedInput, err))
		return
	}

	params, err := h.params(req)
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}

	j, err := h.jobStore.Create(backtestJobType)
	if err != nil {
		h.logger.Warn("backtest rejected", zap.String("symbol", params.Symbol), zap.Error(err))
		response.Error(w, response.StatusFor(err), err)
		return
	}
	h.reportActive()

	// Run backtest in background
	go h.runBacktest(j.ID, params)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// params merges a request onto the defaults and validates the result.
func (h *BacktestHandler) params(req BacktestRequest) (backtest.Params, error) {
	p := h.defaults

	p.Symbol = strings.TrimSpace(req.Symbol)
	if p.Symbol == "" {
		return p, core.WrapError(core.ErrConfigMissing, errors.New("symbol is required"))
	}

	if req.Start != "" {
		start, err := time.Parse(time.DateOnly, req.Start)
		if err != nil {
			return p, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("start: %w", err))
		}
		p.Start = start
	}
	if req.End != "" {
		end, err := time.Parse(time.DateOnly, req.End)
		if err != nil {
			return p, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("end: %w", err))
		}
		p.End = end
	}
	if !p.End.After(p.Start) {
		return p, core.WrapError(core.ErrConfigInvalid, errors.New("end must be after start"))
	}

	if req.Fast < 0 || req.Slow < 0 || req.PeriodsPerYear < 0 {
		return p, core.WrapError(core.ErrConfigInvalid, errors.New("windows and periods must be positive"))
	}
	if req.Fast > 0 {
		p.FastWindow = req.Fast
	}
	if req.Slow > 0 {
		p.SlowWindow = req.Slow
	}
	if req.PeriodsPerYear > 0 {
		p.PeriodsPerYear = req.PeriodsPerYear
	}
	return p, nil
}

// runBacktest executes the backtest and updates job status.
func (h *BacktestHandler) runBacktest(jobID string, params backtest.Params) {
	defer h.reportActive()

	h.update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	result, err := h.runner.Run(ctx, params)

	if err != nil {
		h.logger.Warn("backtest job failed",
			zap.String("job_id", jobID),
			zap.String("symbol", params.Symbol),
			zap.Error(err),
		)
		h.update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
		return
	}

	summary := Summarize(result)
	h.update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Result = summary
	})
}

// update applies fn to a job, logging when the job has been dropped.
func (h *BacktestHandler) update(jobID string, fn func(*job.Job)) {
	if err := h.jobStore.Update(jobID, fn); err != nil {
		h.logger.Error("updating backtest job", zap.String("job_id", jobID), zap.Error(err))
	}
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":     j.ID,
		"status":     j.Status,
		"created_at": j.CreatedAt,
		"updated_at": j.UpdatedAt,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = response.Detail(j.Error)
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *BacktestHandler) reportActive() {
	if h.gauge != nil {
		h.gauge.SetJobsActive(backtestJobType, h.jobStore.Active(backtestJobType))
	}
}

// asCoreError keeps coded errors and files anything else under the
// collector, the only stage that returns uncoded errors.
func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.WrapError(core.ErrCollectorFailed, fmt.Errorf("backtest timed out: %w", err))
	}
	return core.WrapError(core.ErrCollectorFailed, err)
}
