package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/justestif/moodmatch/internal/classifier"
	"github.com/justestif/moodmatch/internal/search"
)

// maxBodyBytes caps request bodies; pasted lyrics are the largest payload.
const maxBodyBytes = 1 << 20

// defaultThemes is the theme count when ?k= is absent.
const defaultThemes = 3

// Service is the application surface the handlers expose.
// *search.Service implements it.
type Service interface {
	Search(ctx context.Context, song, artist string) (*search.Result, error)
	Classify(ctx context.Context, lyrics string) (string, error)
	Preprocess(lyrics string) string
	Moods(ctx context.Context) (map[string]int, error)
	Themes(ctx context.Context, mood string, k int) (*search.ThemeResult, error)
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	svc    Service
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		svc:    svc,
		logger: logger,
	}
}

// Health reports liveness (GET /health).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search classifies a song and lists similar songs of its mood (POST /search).
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.Search(r.Context(), req.SongName, req.ArtistName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newSearchResponse(result))
}

// Classify predicts the mood of pasted lyrics (POST /classify). The response
// also carries the preprocessed text the model saw.
func (h *Handlers) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	mood, err := h.svc.Classify(r.Context(), req.Lyrics)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, classifyResponse{
		Mood:         mood,
		Preprocessed: h.svc.Preprocess(req.Lyrics),
	})
}

// Moods lists stored song counts per mood (GET /moods).
func (h *Handlers) Moods(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Moods(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, moodsResponse{Moods: counts})
}

// Themes groups the songs of a mood into themes (GET /moods/{mood}/themes).
func (h *Handlers) Themes(w http.ResponseWriter, r *http.Request) {
	mood := chi.URLParam(r, "mood")

	k := defaultThemes
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeDetail(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = n
	}

	result, err := h.svc.Themes(r.Context(), mood, k)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newThemesResponse(result))
}

// decode reads a JSON body into dst and answers 400 when it cannot.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		detail := "invalid request body"
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			detail = "request body too large"
		case errors.Is(err, io.EOF):
			detail = "request body is empty"
		}
		writeDetail(w, http.StatusBadRequest, detail)
		return false
	}
	return true
}

// writeError maps service errors to status codes.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, search.ErrInvalidInput):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, search.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Lyrics for Song not found")
	case errors.Is(err, search.ErrProviderUnavailable):
		writeDetail(w, http.StatusInternalServerError, "Error during scraping of the lyrics")
	case errors.Is(err, classifier.ErrNoModel):
		writeDetail(w, http.StatusServiceUnavailable, "mood model not loaded")
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}
