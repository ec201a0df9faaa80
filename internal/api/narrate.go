package api

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"driveguide/pkg/apisession"
	"driveguide/pkg/clock"
	"driveguide/pkg/model"
	"driveguide/pkg/narration"
)

// Backend rate limit: requests per client per window.
const (
	NarrateBurst  = 4
	NarrateWindow = time.Minute
)

// TextGenerator produces narration text and never fails.
type TextGenerator interface {
	Generate(ctx context.Context, req *model.NarrationRequest) string
}

// NarrateHandler is the narration backend used by split deployments: a client
// posts a structured request and receives the generated text.
type NarrateHandler struct {
	gen      TextGenerator
	clk      clock.Clock
	validate *validator.Validate
	limiters *apisession.Store[rate.Limiter]
}

// NewNarrateHandler creates a NarrateHandler.
func NewNarrateHandler(gen TextGenerator, clk clock.Clock) *NarrateHandler {
	if clk == nil {
		clk = clock.Real{}
	}
	return &NarrateHandler{
		gen:      gen,
		clk:      clk,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		// An idle client's bucket is full again after one window.
		limiters: apisession.New(NarrateWindow, clk, func() *rate.Limiter {
			return rate.NewLimiter(rate.Every(NarrateWindow/NarrateBurst), NarrateBurst)
		}),
	}
}

// narrateRequest mirrors model.NarrationRequest with presence checks on the
// fields a narration cannot do without.
type narrateRequest struct {
	POIName        string   `json:"poiName" validate:"required"`
	POIType        string   `json:"poiType"`
	POISubType     string   `json:"poiSubType"`
	DistanceMeters float64  `json:"distance"`
	Direction      string   `json:"direction" validate:"required"`
	Speed          *float64 `json:"speed"`
	Latitude       *float64 `json:"latitude" validate:"required"`
	Longitude      *float64 `json:"longitude" validate:"required"`
}

// HandleNarrate handles POST /api/narrate.
func (h *NarrateHandler) HandleNarrate(w http.ResponseWriter, r *http.Request) {
	key := clientKey(r)
	if !h.allow(key) {
		slog.Warn("API: narrate rate limited", "client", key)
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please wait.")
		return
	}

	var body narrateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	req := &model.NarrationRequest{
		POIName:        body.POIName,
		POIType:        model.POIType(body.POIType),
		POISubType:     body.POISubType,
		DistanceMeters: int(math.Round(body.DistanceMeters)),
		Direction:      model.Direction(body.Direction),
		Speed:          body.Speed,
		Latitude:       *body.Latitude,
		Longitude:      *body.Longitude,
	}
	text := h.gen.Generate(r.Context(), req)
	writeJSON(w, http.StatusOK, narration.Response{Narration: text})
}

func (h *NarrateHandler) allow(key string) bool {
	return h.limiters.Get(key).AllowN(h.clk.Now(), 1)
}

// clientKey identifies the caller by the first X-Forwarded-For entry, else
// by the peer address.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
