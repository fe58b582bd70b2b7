package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/eqcalc/thermox/pkg/compound"
)

// Aqueous reference conditions used when a query omits them.
const (
	defaultPH            = 7.0
	defaultIonicStrength = 0.25
	defaultTemperature   = 298.15
)

// GetCompound returns the cached microspecies ladder for a compound,
// deriving it on first request.
func (c *Controller) GetCompound(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	comp, err := c.App.Cache.Get(r.Context(), id)
	if err != nil {
		c.App.Logger.Error("Compound lookup failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, "compound lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, comp)
}

// TransformCompound returns the transformed Gibbs energy offset of a
// compound at the requested pH, ionic strength and temperature. With
// ?ref=neutral the offset is referenced to the zero-charge microspecies.
func (c *Controller) TransformCompound(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ph, ok := floatParam(w, r, "ph", defaultPH)
	if !ok {
		return
	}
	ionicStrength, ok := floatParam(w, r, "is", defaultIonicStrength)
	if !ok {
		return
	}
	temperature, ok := floatParam(w, r, "t", defaultTemperature)
	if !ok {
		return
	}

	comp, err := c.App.Cache.Get(r.Context(), id)
	if err != nil {
		c.App.Logger.Error("Compound lookup failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusBadGateway, "compound lookup failed")
		return
	}

	var ddg float64
	if r.URL.Query().Get("ref") == "neutral" {
		ddg, err = comp.TransformNeutral(ph, ionicStrength, temperature)
		if err != nil {
			if errors.Is(err, compound.ErrNoNeutralSpecies) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		ddg = comp.Transform(ph, ionicStrength, temperature)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":             id,
		"ph":             ph,
		"ionic_strength": ionicStrength,
		"temperature":    temperature,
		"ddg0":           ddg,
	})
}

func floatParam(w http.ResponseWriter, r *http.Request, name string, def float64) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+" parameter")
		return 0, false
	}
	return v, true
}
