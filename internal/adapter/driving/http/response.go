package httphandler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// AddRepoRequest is the JSON body for the add repository endpoint.
type AddRepoRequest struct {
	Name string `json:"name" validate:"required,reponame"`
}

// RepoResponse is the JSON representation of a tracked repository.
type RepoResponse struct {
	FullName string `json:"full_name"`
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	AddedAt  string `json:"added_at"`
}

// KindReportResponse is the per-kind part of a sync report.
type KindReportResponse struct {
	Since   string `json:"since"`
	Pruned  int64  `json:"pruned"`
	Fetched int    `json:"fetched"`
	Stored  int    `json:"stored"`
}

// RepoReportResponse is the JSON representation of one repository sync.
type RepoReportResponse struct {
	Repository string                        `json:"repository"`
	Stage      string                        `json:"stage"`
	FailedAt   string                        `json:"failed_at,omitempty"`
	Error      string                        `json:"error,omitempty"`
	Kinds      map[string]KindReportResponse `json:"kinds"`
	StartedAt  string                        `json:"started_at"`
	FinishedAt string                        `json:"finished_at"`
}

// RunReportResponse is the JSON representation of a full sync run.
type RunReportResponse struct {
	RunID        string               `json:"run_id"`
	Repositories []RepoReportResponse `json:"repositories"`
	Failed       int                  `json:"failed"`
	StartedAt    string               `json:"started_at"`
	FinishedAt   string               `json:"finished_at"`
}

// ActivityItemResponse is one entry of the activity timeline.
type ActivityItemResponse struct {
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Date       string `json:"date"`
	Repository string `json:"repository"`
	State      string `json:"state,omitempty"`
}

// ActivityResponse is the JSON body of an activity query.
type ActivityResponse struct {
	View       string                 `json:"view,omitempty"`
	Generation uint64                 `json:"generation,omitempty"`
	Count      int                    `json:"count"`
	Items      []ActivityItemResponse `json:"items"`
}

// ViewResponse is the JSON representation of a view's current feed state.
type ViewResponse struct {
	View       string                 `json:"view"`
	Generation uint64                 `json:"generation"`
	UpdatedAt  string                 `json:"updated_at,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Count      int                    `json:"count"`
	Items      []ActivityItemResponse `json:"items"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// toRepoResponse converts a domain Repository to its JSON response representation.
func toRepoResponse(repo model.Repository) RepoResponse {
	owner, name, _ := strings.Cut(repo.FullName, "/")
	return RepoResponse{
		FullName: repo.FullName,
		Owner:    owner,
		Name:     name,
		AddedAt:  formatTime(repo.AddedAt),
	}
}

func toRepoReportResponse(r application.RepoReport) RepoReportResponse {
	kinds := make(map[string]KindReportResponse, len(r.Kinds))
	for kind, kr := range r.Kinds {
		kinds[string(kind)] = KindReportResponse{
			Since:   formatTime(kr.Since),
			Pruned:  kr.Pruned,
			Fetched: kr.Fetched,
			Stored:  kr.Stored,
		}
	}

	return RepoReportResponse{
		Repository: r.Repository,
		Stage:      string(r.Stage),
		FailedAt:   string(r.FailedAt),
		Error:      r.Error,
		Kinds:      kinds,
		StartedAt:  formatTime(r.StartedAt),
		FinishedAt: formatTime(r.FinishedAt),
	}
}

func toRunReportResponse(r application.RunReport) RunReportResponse {
	repos := make([]RepoReportResponse, 0, len(r.Repositories))
	for _, rr := range r.Repositories {
		repos = append(repos, toRepoReportResponse(rr))
	}

	return RunReportResponse{
		RunID:        r.RunID,
		Repositories: repos,
		Failed:       r.Failed,
		StartedAt:    formatTime(r.StartedAt),
		FinishedAt:   formatTime(r.FinishedAt),
	}
}

func toActivityItems(items []model.ActivityItem) []ActivityItemResponse {
	resp := make([]ActivityItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, ActivityItemResponse{
			Kind:       string(item.Kind),
			Title:      item.Title,
			Author:     item.Author,
			Date:       formatTime(item.Date),
			Repository: item.Repository,
			State:      string(item.State),
		})
	}
	return resp
}

func toViewResponse(id string, snap application.FeedSnapshot) ViewResponse {
	resp := ViewResponse{
		View:       id,
		Generation: snap.Generation,
		UpdatedAt:  formatTime(snap.UpdatedAt),
		Items:      toActivityItems(snap.Items),
	}
	resp.Count = len(resp.Items)
	if snap.Err != nil {
		resp.Error = "last refresh failed"
	}
	return resp
}
