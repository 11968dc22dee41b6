package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// dateLayout is the format of the start and end query parameters.
const dateLayout = "2006-01-02"

// RepoSyncer is the part of the sync service the API drives.
type RepoSyncer interface {
	AddRepository(ctx context.Context, fullName string) (application.RepoReport, bool, error)
	SyncAll(ctx context.Context) (application.RunReport, error)
}

// Compile-time interface satisfaction check.
var _ RepoSyncer = (*application.SyncService)(nil)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	repoStore driven.RepoStore
	syncer    RepoSyncer
	query     application.Querier
	feeds     *application.FeedRegistry
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	repoStore driven.RepoStore,
	syncer RepoSyncer,
	query application.Querier,
	feeds *application.FeedRegistry,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		repoStore: repoStore,
		syncer:    syncer,
		query:     query,
		feeds:     feeds,
		logger:    logger,
	}
}

// NewRouter creates an http.Handler with all routes registered and wrapped
// with request ID, logging and recovery middleware.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	// Recovery innermost so panics are caught before logging.
	r.Use(loggingMiddleware(logger))
	r.Use(recoveryMiddleware(logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Get("/repos", h.ListRepos)
		r.Post("/repos", h.AddRepo)
		r.Delete("/repos/{owner}/{repo}", h.RemoveRepo)

		r.Post("/sync", h.SyncAll)

		r.Get("/activity", h.Activity)
		r.Post("/views", h.CreateView)
		r.Get("/views/{view}", h.GetView)
	})

	return r
}

// ListRepos returns all tracked repositories.
func (h *Handler) ListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := h.repoStore.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list repos", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RepoResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toRepoResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddRepo registers a repository that exists on GitHub and runs its first
// sync before responding. A repository already tracked is synced again and
// answered with 200 instead of 201.
func (h *Handler) AddRepo(w http.ResponseWriter, r *http.Request) {
	var req AddRepoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, created, err := h.syncer.AddRepository(r.Context(), req.Name)
	switch {
	case errors.Is(err, application.ErrInvalidRepoName):
		writeError(w, http.StatusBadRequest, "invalid repository name: expected owner/repo format")
		return
	case errors.Is(err, application.ErrRemoteRepoNotFound):
		writeError(w, http.StatusNotFound, "repository not found on GitHub")
		return
	case errors.Is(err, application.ErrSyncDisabled):
		writeError(w, http.StatusServiceUnavailable, "sync disabled: no GitHub token configured")
		return
	case err != nil && !report.Failed():
		h.logger.Error("failed to add repo", "repo", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	case err != nil:
		// The repository is tracked; the failed sync is reported in the body.
		h.logger.Warn("initial sync failed", "repo", req.Name, "stage", report.FailedAt, "error", err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	writeJSON(w, status, toRepoReportResponse(report))
}

// RemoveRepo stops tracking a repository and deletes its stored activity.
func (h *Handler) RemoveRepo(w http.ResponseWriter, r *http.Request) {
	fullName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo")

	if err := h.repoStore.Remove(r.Context(), fullName); err != nil {
		if errors.Is(err, driven.ErrRepoNotFound) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		h.logger.Error("failed to remove repo", "repo", fullName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SyncAll syncs every tracked repository and responds with the run report.
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	run, err := h.syncer.SyncAll(r.Context())
	if errors.Is(err, application.ErrSyncDisabled) {
		writeError(w, http.StatusServiceUnavailable, "sync disabled: no GitHub token configured")
		return
	}
	if err != nil {
		h.logger.Error("sync run failed", "run_id", run.RunID, "error", err)
		writeError(w, http.StatusInternalServerError, "sync run failed")
		return
	}

	writeJSON(w, http.StatusOK, toRunReportResponse(run))
}

// activityQuery holds the raw query parameters of the activity endpoint.
type activityQuery struct {
	Repo    string `query:"repo"`
	Repos   string `query:"repos"`
	Author  string `query:"author"`
	Authors string `query:"authors"`
	Days    string `query:"days" validate:"omitempty,number,excluded_with=Start End"`
	Start   string `query:"start" validate:"required_with=End,omitempty,datetime=2006-01-02"`
	End     string `query:"end" validate:"required_with=Start,omitempty,datetime=2006-01-02"`
	View    string `query:"view" validate:"omitempty,max=64"`
}

// Activity returns the merged activity timeline for the filter in the query
// string. With a view parameter the query runs through that view's feed, and
// a request overtaken by a newer one for the same view answers 409.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := activityQuery{
		Repo:    q.Get("repo"),
		Repos:   q.Get("repos"),
		Author:  q.Get("author"),
		Authors: q.Get("authors"),
		Days:    q.Get("days"),
		Start:   q.Get("start"),
		End:     q.Get("end"),
		View:    q.Get("view"),
	}

	filter, err := parseActivityQuery(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if params.View == "" {
		items, err := h.query.Query(r.Context(), filter)
		if err != nil {
			h.writeQueryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ActivityResponse{Count: len(items), Items: toActivityItems(items)})
		return
	}

	feed := h.feeds.Feed(params.View)
	items, err := feed.Refresh(r.Context(), filter)
	if err != nil {
		if errors.Is(err, application.ErrSuperseded) {
			writeError(w, http.StatusConflict, "superseded by a newer query for this view")
			return
		}
		h.writeQueryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ActivityResponse{
		View:       params.View,
		Generation: feed.Snapshot().Generation,
		Count:      len(items),
		Items:      toActivityItems(items),
	})
}

// CreateView registers a new view and returns its ID.
func (h *Handler) CreateView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"view": h.feeds.NewView()})
}

// GetView returns the result a view currently holds without querying again.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "view")

	feed, ok := h.feeds.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "view not found")
		return
	}

	writeJSON(w, http.StatusOK, toViewResponse(id, feed.Snapshot()))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, application.ErrInvalidFilter) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, context.Canceled) {
		// Client went away; nothing useful to write.
		return
	}
	h.logger.Error("activity query failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// parseActivityQuery validates the raw parameters and builds the filter.
func parseActivityQuery(params activityQuery) (application.ActivityFilter, error) {
	if err := validateStruct(params); err != nil {
		return application.ActivityFilter{}, err
	}

	filter := application.ActivityFilter{
		Repository:   strings.TrimSpace(params.Repo),
		Repositories: splitList(params.Repos),
		Author:       strings.TrimSpace(params.Author),
		Authors:      splitList(params.Authors),
		Window:       application.AllTime(),
	}

	switch {
	case params.Days != "":
		days, err := strconv.Atoi(params.Days)
		if err != nil || days <= 0 {
			return filter, errors.New("days: expected a positive integer")
		}
		filter.Window = application.LastDays(days)

	case params.Start != "":
		start, err := time.Parse(dateLayout, params.Start)
		if err != nil {
			return filter, errors.New("start: expected YYYY-MM-DD")
		}
		end, err := time.Parse(dateLayout, params.End)
		if err != nil {
			return filter, errors.New("end: expected YYYY-MM-DD")
		}
		if end.Before(start) {
			return filter, errors.New("end is before start")
		}
		filter.Window = application.Between(start, end)
	}

	return filter, nil
}

// splitList splits a comma-separated parameter, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
