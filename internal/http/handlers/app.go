// Package handlers implements the HTTP surface of the book service.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/twojabajka/server/internal/book"
	"github.com/twojabajka/server/internal/infra"
	"github.com/twojabajka/server/internal/render"
)

// BookGenerator runs the full generation pipeline.
type BookGenerator interface {
	GenerateBook(ctx context.Context, req book.Request) (*book.Result, error)
}

// BookRenderer lays out and prints a generated book.
type BookRenderer interface {
	RenderHTML(ctx context.Context, b render.Book) (string, error)
	RenderPDF(ctx context.Context, b render.Book) ([]byte, string, error)
}

// ThemeSource proposes random story themes.
type ThemeSource interface {
	Suggest(ctx context.Context) (string, error)
}

// DedicationSource drafts dedications.
type DedicationSource interface {
	Write(ctx context.Context, childName string, age int, theme string) (string, error)
}

// App carries the handlers' dependencies.
type App struct {
	Cfg         *infra.Config
	Log         *infra.Logger
	Books       BookGenerator
	Renderer    BookRenderer
	Themes      ThemeSource
	Dedications DedicationSource
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) fail(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]any{"success": false, "error": message})
}
