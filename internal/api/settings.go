package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"driveguide/pkg/config"
)

// SettingsHandler exposes the runtime settings the presentation side may change.
type SettingsHandler struct {
	cfg      config.Provider
	validate *validator.Validate
}

// NewSettingsHandler creates a SettingsHandler whose radius validation follows
// the configured presets.
func NewSettingsHandler(cfg config.Provider) *SettingsHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("radius_preset", func(fl validator.FieldLevel) bool {
		return cfg.AppConfig().IsRadiusPreset(fl.Field().Float())
	})
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := config.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	return &SettingsHandler{cfg: cfg, validate: v}
}

// SettingsResponse is the reply of GET /api/settings.
type SettingsResponse struct {
	SearchRadius      float64   `json:"search_radius"`
	RadiusPresets     []float64 `json:"radius_presets"`
	AutoNarrate       bool      `json:"auto_narrate"`
	NarrationCooldown string    `json:"narration_cooldown"`
	SimSource         string    `json:"sim_source"`
}

// SettingsRequest is a partial update; absent fields are left unchanged.
type SettingsRequest struct {
	SearchRadius      *float64 `json:"search_radius" validate:"omitempty,radius_preset"`
	AutoNarrate       *bool    `json:"auto_narrate"`
	NarrationCooldown *string  `json:"narration_cooldown" validate:"omitempty,duration"`
}

// HandleGet handles GET /api/settings.
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.current(r))
}

func (h *SettingsHandler) current(r *http.Request) SettingsResponse {
	ctx := r.Context()
	return SettingsResponse{
		SearchRadius:      h.cfg.SearchRadius(ctx),
		RadiusPresets:     h.cfg.AppConfig().POI.RadiusPresets,
		AutoNarrate:       h.cfg.AutoNarrate(ctx),
		NarrationCooldown: h.cfg.NarrationCooldown(ctx).String(),
		SimSource:         h.cfg.SimProvider(ctx),
	}
}

// HandlePut handles PUT /api/settings.
func (h *SettingsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ctx := r.Context()
	if req.SearchRadius != nil {
		if err := h.cfg.SetSearchRadius(ctx, *req.SearchRadius); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.AutoNarrate != nil {
		if err := h.cfg.SetAutoNarrate(ctx, *req.AutoNarrate); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if req.NarrationCooldown != nil {
		d, _ := config.ParseDuration(*req.NarrationCooldown)
		if err := h.cfg.SetNarrationCooldown(ctx, d); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp := h.current(r)
	slog.Info("API: settings updated", "search_radius", resp.SearchRadius, "auto_narrate", resp.AutoNarrate, "cooldown", resp.NarrationCooldown)
	writeJSON(w, http.StatusOK, resp)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "radius_preset":
			msgs = append(msgs, fmt.Sprintf("%s must be one of the radius presets", fe.Field()))
		case "duration":
			msgs = append(msgs, fmt.Sprintf("%s must be a non-negative duration like %q", fe.Field(), 30*time.Second))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
