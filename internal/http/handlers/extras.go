package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/twojabajka/server/internal/book"
)

// RandomTheme handles POST /v1/themes/random.
func (a *App) RandomTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := a.Themes.Suggest(r.Context())
	if err != nil {
		a.Log.Error().Err(err).Msg("handlers: theme suggestion failed")
		a.fail(w, http.StatusBadGateway, err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "theme": theme})
}

type dedicationRequest struct {
	ChildName  string `json:"childName"`
	Age        int    `json:"age"`
	StoryTheme string `json:"storyTheme"`
}

// GenerateDedication handles POST /v1/dedications/generate.
func (a *App) GenerateDedication(w http.ResponseWriter, r *http.Request) {
	var req dedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	dedication, err := a.Dedications.Write(r.Context(), req.ChildName, req.Age, req.StoryTheme)
	if err != nil {
		var vErr *book.ValidationError
		if errors.As(err, &vErr) {
			a.fail(w, http.StatusBadRequest, vErr.Error())
			return
		}
		a.Log.Error().Err(err).Msg("handlers: dedication generation failed")
		a.fail(w, http.StatusBadGateway, err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "dedication": dedication})
}
