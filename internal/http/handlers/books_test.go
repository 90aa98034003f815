package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/twojabajka/server/internal/book"
	"github.com/twojabajka/server/internal/infra"
	"github.com/twojabajka/server/internal/render"
)

type stubGenerator struct {
	got    book.Request
	result *book.Result
	err    error
}

func (s *stubGenerator) GenerateBook(ctx context.Context, req book.Request) (*book.Result, error) {
	s.got = req
	return s.result, s.err
}

type stubRenderer struct {
	html     string
	pdf      []byte
	filename string
	err      error
}

func (s *stubRenderer) RenderHTML(ctx context.Context, b render.Book) (string, error) {
	return s.html, s.err
}

func (s *stubRenderer) RenderPDF(ctx context.Context, b render.Book) ([]byte, string, error) {
	return s.pdf, s.filename, s.err
}

type stubThemes struct {
	theme string
	err   error
}

func (s stubThemes) Suggest(ctx context.Context) (string, error) { return s.theme, s.err }

type stubDedications struct {
	dedication string
	err        error
}

func (s stubDedications) Write(ctx context.Context, childName string, age int, theme string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if strings.TrimSpace(childName) == "" {
		return "", &book.ValidationError{Field: "childName", Reason: "is required"}
	}
	return s.dedication, nil
}

func testApp(t *testing.T) *App {
	t.Helper()
	logger := infra.Logger(zerolog.Nop())
	return &App{
		Cfg: &infra.Config{AllowedOrigins: []string{"http://localhost:3000"}, RateLimitPerMin: 100},
		Log: &logger,
	}
}

func multipartBody(t *testing.T, fields map[string]string, photoKey string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if photoKey != "" {
		fw, err := w.CreateFormFile(photoKey, "child.jpg")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write([]byte{0xff, 0xd8, 0xff}); err != nil {
			t.Fatalf("write photo: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestGenerateBookSuccess(t *testing.T) {
	app := testApp(t)
	gen := &stubGenerator{result: &book.Result{
		StoryTitle: "Zaczarowany Ogród",
		Fragments:  []string{"f1"},
		GeneratedImages: []book.GeneratedImage{
			{Prompt: "p", URL: "https://cdn.example/cover.png", PromptVersionUsed: "full_scene_desc"},
		},
		Dedication: "Dla Zosi",
	}}
	app.Books = gen

	body, contentType := multipartBody(t, map[string]string{
		"childName":      "Zosia",
		"age":            "7",
		"storyTheme":     "magiczny ogród",
		"dedication":     "Dla Zosi",
		"selectedStyle":  "Akwarela",
		"bookProportion": "portrait",
	}, "photo")
	req := httptest.NewRequest(http.MethodPost, "/v1/books/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	app.GenerateBook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success    bool     `json:"success"`
		StoryTitle string   `json:"storyTitle"`
		Fragments  []string `json:"fragments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Success || resp.StoryTitle != "Zaczarowany Ogród" {
		t.Fatalf("response = %+v", resp)
	}
	if gen.got.ChildName != "Zosia" || gen.got.Age != 7 || gen.got.Proportion != "portrait" {
		t.Fatalf("request = %+v", gen.got)
	}
	if len(gen.got.Photo) == 0 {
		t.Fatal("photo bytes not passed through")
	}
}

func TestGenerateBookAcceptsLegacyPhotoKey(t *testing.T) {
	app := testApp(t)
	gen := &stubGenerator{result: &book.Result{StoryTitle: "T"}}
	app.Books = gen

	body, contentType := multipartBody(t, map[string]string{
		"childName": "Jaś", "age": "5", "storyTheme": "las",
	}, "images")
	req := httptest.NewRequest(http.MethodPost, "/v1/books/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	app.GenerateBook(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateBookRejectsBadInput(t *testing.T) {
	cases := []struct {
		name     string
		fields   map[string]string
		photoKey string
	}{
		{"age not a number", map[string]string{"childName": "A", "age": "abc", "storyTheme": "t"}, "photo"},
		{"missing photo", map[string]string{"childName": "A", "age": "7", "storyTheme": "t"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := testApp(t)
			app.Books = &stubGenerator{result: &book.Result{}}
			body, contentType := multipartBody(t, tc.fields, tc.photoKey)
			req := httptest.NewRequest(http.MethodPost, "/v1/books/generate", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			app.GenerateBook(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), `"success":false`) {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestGenerateBookValidationErrorMapsTo400(t *testing.T) {
	app := testApp(t)
	app.Books = &stubGenerator{err: &book.ValidationError{Field: "age", Reason: "must be between 1 and 18"}}

	body, contentType := multipartBody(t, map[string]string{
		"childName": "A", "age": "99", "storyTheme": "t",
	}, "photo")
	req := httptest.NewRequest(http.MethodPost, "/v1/books/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	app.GenerateBook(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateBookPipelineErrorMapsTo502(t *testing.T) {
	app := testApp(t)
	app.Books = &stubGenerator{err: errors.New("book: photo upload: imgbb down")}

	body, contentType := multipartBody(t, map[string]string{
		"childName": "A", "age": "7", "storyTheme": "t",
	}, "photo")
	req := httptest.NewRequest(http.MethodPost, "/v1/books/generate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	app.GenerateBook(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}
