package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/twojabajka/server/internal/book"
)

func pdfBody(t *testing.T, req pdfRequest) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	return &buf
}

func completePDFRequest() pdfRequest {
	return pdfRequest{
		StoryTitle: "Zaczarowany Ogród",
		Fragments:  []string{"f1", "f2"},
		GeneratedImages: []book.GeneratedImage{
			{URL: "https://cdn.example/cover.png"},
			{URL: "https://cdn.example/p1.png"},
			{URL: "https://cdn.example/p2.png"},
		},
		ChildName:      "Zosia",
		SelectedStyle:  "Akwarela",
		BookProportion: "square",
	}
}

func TestRenderPDFReturnsAttachment(t *testing.T) {
	app := testApp(t)
	app.Renderer = &stubRenderer{pdf: []byte("%PDF-1.4 fake"), filename: "zaczarowany_ogrod.pdf"}

	req := httptest.NewRequest(http.MethodPost, "/v1/books/pdf", pdfBody(t, completePDFRequest()))
	rec := httptest.NewRecorder()

	app.RenderPDF(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="zaczarowany_ogrod.pdf"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "%PDF-1.4 fake" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestRenderPDFHTMLPreview(t *testing.T) {
	app := testApp(t)
	app.Renderer = &stubRenderer{html: "<!DOCTYPE html><html></html>"}

	req := httptest.NewRequest(http.MethodPost, "/v1/books/pdf?preview=html", pdfBody(t, completePDFRequest()))
	rec := httptest.NewRecorder()

	app.RenderPDF(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("Content-Type = %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestRenderPDFRejectsIncompleteBook(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*pdfRequest)
	}{
		{"missing title", func(r *pdfRequest) { r.StoryTitle = "" }},
		{"missing fragments", func(r *pdfRequest) { r.Fragments = nil }},
		{"missing images", func(r *pdfRequest) { r.GeneratedImages = nil }},
		{"missing child name", func(r *pdfRequest) { r.ChildName = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := testApp(t)
			app.Renderer = &stubRenderer{pdf: []byte("x")}
			body := completePDFRequest()
			tc.mutate(&body)

			req := httptest.NewRequest(http.MethodPost, "/v1/books/pdf", pdfBody(t, body))
			rec := httptest.NewRecorder()

			app.RenderPDF(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRenderPDFRejectsMalformedJSON(t *testing.T) {
	app := testApp(t)
	app.Renderer = &stubRenderer{}

	req := httptest.NewRequest(http.MethodPost, "/v1/books/pdf", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	app.RenderPDF(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRenderPDFPrinterErrorMapsTo500(t *testing.T) {
	app := testApp(t)
	app.Renderer = &stubRenderer{err: errors.New("render: chromium exited")}

	req := httptest.NewRequest(http.MethodPost, "/v1/books/pdf", pdfBody(t, completePDFRequest()))
	rec := httptest.NewRecorder()

	app.RenderPDF(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
