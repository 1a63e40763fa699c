package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/domain"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/importance"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/logging"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/usecase"
)

const maxHours = 24 * 30

// Ingester triggers ingestion runs.
type Ingester interface {
	IngestAll(ctx context.Context) ([]domain.IngestResult, error)
	IngestSource(ctx context.Context, id string) (domain.IngestResult, error)
}

// Ranker serves ranked stories.
type Ranker interface {
	Rank(ctx context.Context, q usecase.StoriesQuery) ([]usecase.RankedStory, error)
}

// Deps wires the handlers.
type Deps struct {
	Ingester Ingester
	Ranker   Ranker
	Metrics  http.Handler
	Logger   *slog.Logger
}

type handler struct {
	ingester Ingester
	ranker   Ranker
	logger   *slog.Logger
}

// NewRouter mounts the trigger and read endpoints.
func NewRouter(deps Deps) http.Handler {
	h := &handler{ingester: deps.Ingester, ranker: deps.Ranker, logger: logging.OrDiscard(deps.Logger)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest", h.ingestAll)
		r.Post("/sources/{id}/ingest", h.ingestSource)
		r.Get("/stories", h.stories)
	})

	return r
}

type resultView struct {
	SourceID    string   `json:"source_id"`
	SourceName  string   `json:"source_name"`
	Fetched     int      `json:"fetched"`
	Inserted    int      `json:"inserted"`
	TagFailures int      `json:"tag_failures,omitempty"`
	Errors      []string `json:"errors"`
	Success     bool     `json:"success"`
	DurationMs  int64    `json:"duration_ms"`
}

func toResultView(r domain.IngestResult) resultView {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return resultView{
		SourceID:    r.SourceID,
		SourceName:  r.SourceName,
		Fetched:     r.Fetched,
		Inserted:    r.Inserted,
		TagFailures: r.TagFailures,
		Errors:      errs,
		Success:     r.Success,
		DurationMs:  r.Duration.Milliseconds(),
	}
}

func (h *handler) ingestAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.ingester.IngestAll(r.Context())
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	views := make([]resultView, 0, len(results))
	for _, res := range results {
		views = append(views, toResultView(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": views})
}

func (h *handler) ingestSource(w http.ResponseWriter, r *http.Request) {
	result, err := h.ingester.IngestSource(r.Context(), chi.URLParam(r, "id"))
	if eris.Is(err, domain.ErrSourceNotFound) {
		h.fail(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultView(result))
}

type itemView struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	URL         string           `json:"url"`
	Source      string           `json:"source"`
	PublishedAt *time.Time       `json:"published_at,omitempty"`
	Tags        domain.TagBundle `json:"tags"`
}

type storyView struct {
	Score       float64             `json:"score"`
	Tier        importance.Tier     `json:"tier"`
	Lead        itemView            `json:"lead"`
	Related     []itemView          `json:"related"`
	Sources     []string            `json:"sources"`
	MultiSource bool                `json:"multi_source"`
	Factors     []importance.Factor `json:"factors"`
}

func toItemView(item domain.Item) itemView {
	return itemView{
		ID:          item.ID,
		Title:       item.Title,
		URL:         item.URL,
		Source:      item.SourceName,
		PublishedAt: item.PublishedAt,
		Tags:        item.Tags,
	}
}

func (h *handler) stories(w http.ResponseWriter, r *http.Request) {
	q := usecase.StoriesQuery{}
	if v := r.URL.Query().Get("hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 || hours > maxHours {
			h.fail(w, http.StatusBadRequest, eris.Errorf("invalid hours %q", v))
			return
		}
		q.Window = time.Duration(hours) * time.Hour
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			h.fail(w, http.StatusBadRequest, eris.Errorf("invalid limit %q", v))
			return
		}
		q.Limit = limit
	}
	minTier := importance.ParseTier(r.URL.Query().Get("min_tier"))

	ranked, err := h.ranker.Rank(r.Context(), q)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	views := make([]storyView, 0, len(ranked))
	for _, story := range ranked {
		if story.Tier.Rank() < minTier.Rank() {
			continue
		}
		related := make([]itemView, 0, len(story.Cluster.Related))
		for _, item := range story.Cluster.Related {
			related = append(related, toItemView(item))
		}
		views = append(views, storyView{
			Score:       story.Score,
			Tier:        story.Tier,
			Lead:        toItemView(story.Cluster.Lead),
			Related:     related,
			Sources:     story.Cluster.Sources,
			MultiSource: story.Cluster.MultiSource,
			Factors:     story.Breakdown.Factors,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stories": views})
}

func (h *handler) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
