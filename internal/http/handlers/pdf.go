package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/twojabajka/server/internal/book"
	"github.com/twojabajka/server/internal/render"
)

type pdfRequest struct {
	StoryTitle      string                `json:"storyTitle"`
	Fragments       []string              `json:"fragments"`
	GeneratedImages []book.GeneratedImage `json:"generatedImages"`
	Dedication      string                `json:"dedication"`
	ChildName       string                `json:"childName"`
	SelectedStyle   string                `json:"selectedStyle"`
	BookProportion  string                `json:"bookProportion"`
}

// RenderPDF handles POST /v1/books/pdf. The body is the book payload returned
// by GenerateBook plus childName, selectedStyle and bookProportion. With
// ?preview=html the assembled HTML document is returned instead of the PDF.
func (a *App) RenderPDF(w http.ResponseWriter, r *http.Request) {
	var req pdfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}

	imageURLs := make([]string, 0, len(req.GeneratedImages))
	for _, img := range req.GeneratedImages {
		imageURLs = append(imageURLs, img.URL)
	}
	b := render.Book{
		Title:      req.StoryTitle,
		ChildName:  req.ChildName,
		Fragments:  req.Fragments,
		ImageURLs:  imageURLs,
		Dedication: req.Dedication,
		StyleID:    req.SelectedStyle,
		Proportion: req.BookProportion,
	}
	if err := b.Validate(); err != nil {
		a.fail(w, http.StatusBadRequest, "incomplete book data: "+err.Error())
		return
	}

	if r.URL.Query().Get("preview") == "html" {
		htmlContent, err := a.Renderer.RenderHTML(r.Context(), b)
		if err != nil {
			a.Log.Error().Err(err).Msg("handlers: html preview failed")
			a.fail(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(htmlContent))
		return
	}

	pdf, filename, err := a.Renderer.RenderPDF(r.Context(), b)
	if err != nil {
		a.Log.Error().Err(err).Msg("handlers: pdf rendering failed")
		a.fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
