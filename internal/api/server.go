package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"crew-radar/internal/model"
	"crew-radar/internal/scheduler"
	"crew-radar/internal/scraper"
	"crew-radar/internal/storage"
	"crew-radar/internal/subscription"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Store 抽象存储接口。
type Store interface {
	ListJobs(ctx context.Context, q storage.JobQuery) ([]model.Job, error)
	CountJobs(ctx context.Context, q storage.JobQuery) (int64, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	Stats(ctx context.Context, now time.Time) (storage.Stats, error)
	ListRuns(ctx context.Context, source model.Source, limit int) ([]model.ScrapeRun, error)
	LatestRuns(ctx context.Context) (map[model.Source]model.ScrapeRun, error)
}

// Scheduler 抽象调度接口。
type Scheduler interface {
	RunOnce(ctx context.Context) ([]model.ScrapeRun, error)
	RunSource(ctx context.Context, source model.Source, maxPages int) (model.ScrapeRun, error)
}

// Sources 提供已注册来源与连通性探测。
type Sources interface {
	Sources() []model.Source
	HealthCheckAll(ctx context.Context) map[model.Source]scraper.Health
}

// SubscriptionService 处理订阅创建。
type SubscriptionService interface {
	Create(ctx context.Context, req subscription.Request) (model.Subscription, error)
}

// MetaResponse 暴露筛选元数据。
type MetaResponse struct {
	Sources         []model.Source `json:"sources"`
	EmploymentTypes []string       `json:"employment_types"`
	Departments     []string       `json:"departments"`
	VesselTypes     []string       `json:"vessel_types"`
	Channels        []string       `json:"channels"`
}

// SourceInfo 是来源列表中的一项。
type SourceInfo struct {
	Name    model.Source     `json:"name"`
	LastRun *model.ScrapeRun `json:"last_run,omitempty"`
}

// StatsResponse 在存储统计上附加生成时间。
type StatsResponse struct {
	storage.Stats
	GeneratedAt time.Time `json:"generated_at"`
}

// Handler 组合各 API 依赖。
type Handler struct {
	store    Store
	sched    Scheduler
	sources  Sources
	subs     SubscriptionService
	channels []string
	logger   *log.Logger
	now      func() time.Time
}

// NewHandler 构造 HTTP 多路复用器。subs 为空时订阅接口返回 503。
func NewHandler(store Store, sched Scheduler, sources Sources, subs SubscriptionService, channels []string, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.New(os.Stdout, "[api] ", log.LstdFlags)
	}
	if len(channels) == 0 {
		channels = []string{"email"}
	}
	h := &Handler{store: store, sched: sched, sources: sources, subs: subs, channels: channels, logger: logger, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/jobs", h.listJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.getJob)
	mux.HandleFunc("GET /api/stats", h.stats)
	mux.HandleFunc("GET /api/meta", h.meta)
	mux.HandleFunc("GET /api/sources", h.listSources)
	mux.HandleFunc("GET /api/sources/health", h.sourcesHealth)
	mux.HandleFunc("GET /api/runs", h.listRuns)
	mux.HandleFunc("POST /api/refresh", h.refresh)
	mux.HandleFunc("POST /api/subscriptions", h.createSubscription)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "yacht crew jobs api"})
	})
	return mux
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	q, page, err := h.parseJobQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := q.Limit
	q.Limit = limit + 1

	jobs, err := h.store.ListJobs(r.Context(), q)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	total, err := h.store.CountJobs(r.Context(), q)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	hasMore := false
	if len(jobs) > limit {
		hasMore = true
		jobs = jobs[:limit]
	}

	w.Header().Set("X-Page", strconv.Itoa(page))
	w.Header().Set("X-Limit", strconv.Itoa(limit))
	w.Header().Set("X-Has-More", strconv.FormatBool(hasMore))
	w.Header().Set("X-Total", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) parseJobQuery(r *http.Request) (storage.JobQuery, int, error) {
	values := r.URL.Query()
	q := storage.JobQuery{
		Source:   model.Source(strings.TrimSpace(values.Get("source"))),
		Location: values.Get("location"),
		Search:   values.Get("q"),
		Limit:    defaultLimit,
	}
	if l := values.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			q.Limit = min(v, maxLimit)
		}
	}
	page := 1
	if p := values.Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	q.Offset = (page - 1) * q.Limit

	if v := values.Get("employment_type"); v != "" {
		e, ok := model.ParseEmploymentType(v)
		if !ok {
			return q, page, fmt.Errorf("unknown employment_type %q", v)
		}
		q.EmploymentType = e
	}
	if v := values.Get("department"); v != "" {
		d, ok := model.ParseDepartment(v)
		if !ok {
			return q, page, fmt.Errorf("unknown department %q", v)
		}
		q.Department = d
	}
	if v := values.Get("vessel_type"); v != "" {
		vt, ok := model.ParseVesselType(v)
		if !ok {
			return q, page, fmt.Errorf("unknown vessel_type %q", v)
		}
		q.VesselType = vt
	}
	if v := values.Get("min_quality"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return q, page, fmt.Errorf("min_quality must be a number within [0,1]")
		}
		q.MinQuality = f
	}
	if v := values.Get("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d <= 0 {
			return q, page, fmt.Errorf("days must be a positive integer")
		}
		q.PostedSince = h.now().AddDate(0, 0, -d)
	}
	return q, page, nil
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	st, err := h.store.Stats(r.Context(), now)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Stats: st, GeneratedAt: now})
}

func (h *Handler) meta(w http.ResponseWriter, r *http.Request) {
	data := MetaResponse{Channels: h.channels}
	if h.sources != nil {
		data.Sources = h.sources.Sources()
	}
	for _, e := range model.EmploymentTypes() {
		data.EmploymentTypes = append(data.EmploymentTypes, e.String())
	}
	for _, d := range model.Departments() {
		data.Departments = append(data.Departments, d.String())
	}
	for _, v := range model.VesselTypes() {
		data.VesselTypes = append(data.VesselTypes, v.String())
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) listSources(w http.ResponseWriter, r *http.Request) {
	latest, err := h.store.LatestRuns(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	var names []model.Source
	if h.sources != nil {
		names = h.sources.Sources()
	}
	out := make([]SourceInfo, 0, len(names))
	for _, name := range names {
		info := SourceInfo{Name: name}
		if run, ok := latest[name]; ok {
			info.LastRun = &run
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) sourcesHealth(w http.ResponseWriter, r *http.Request) {
	if h.sources == nil {
		writeJSON(w, http.StatusOK, map[model.Source]scraper.Health{})
		return
	}
	writeJSON(w, http.StatusOK, h.sources.HealthCheckAll(r.Context()))
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = min(v, maxLimit)
		}
	}
	runs, err := h.store.ListRuns(r.Context(), model.Source(r.URL.Query().Get("source")), limit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if h.sched == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("scheduler disabled"))
		return
	}
	maxPages := 0
	if v := r.URL.Query().Get("max_pages"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("max_pages must be a positive integer"))
			return
		}
		maxPages = n
	}

	var (
		runs []model.ScrapeRun
		err  error
	)
	if source := strings.TrimSpace(r.URL.Query().Get("source")); source != "" {
		var run model.ScrapeRun
		run, err = h.sched.RunSource(r.Context(), model.Source(source), maxPages)
		runs = []model.ScrapeRun{run}
	} else {
		runs, err = h.sched.RunOnce(r.Context())
	}
	switch {
	case errors.Is(err, scraper.ErrUnknownSource):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		h.serverError(w, r, err)
		return
	}

	created := 0
	for _, run := range runs {
		created += run.NewJobs
	}
	writeJSON(w, http.StatusOK, map[string]any{"created": created, "runs": runs})
}

func (h *Handler) createSubscription(w http.ResponseWriter, r *http.Request) {
	if h.subs == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("subscription disabled"))
		return
	}
	var req subscription.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
		return
	}
	sub, err := h.subs.Create(r.Context(), req)
	if errors.Is(err, subscription.ErrInvalid) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Printf("method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	writeError(w, http.StatusInternalServerError, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
