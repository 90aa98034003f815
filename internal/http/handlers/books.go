package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/twojabajka/server/internal/book"
)

// maxPhotoBytes caps the uploaded photo size.
const maxPhotoBytes = 15 << 20

type generateResponse struct {
	Success bool `json:"success"`
	*book.Result
}

// GenerateBook handles POST /v1/books/generate. The multipart form carries
// childName, age, storyTheme, optional dedication/selectedStyle/bookProportion
// and the photo file. The pipeline runs synchronously and returns the full
// book payload.
func (a *App) GenerateBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		a.fail(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	age, err := strconv.Atoi(strings.TrimSpace(r.FormValue("age")))
	if err != nil {
		a.fail(w, http.StatusBadRequest, "age must be a number")
		return
	}

	photo, err := readPhoto(r)
	if err != nil {
		a.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	req := book.Request{
		ChildName:  strings.TrimSpace(r.FormValue("childName")),
		Age:        age,
		Theme:      strings.TrimSpace(r.FormValue("storyTheme")),
		Dedication: r.FormValue("dedication"),
		StyleID:    r.FormValue("selectedStyle"),
		Proportion: r.FormValue("bookProportion"),
		Photo:      photo,
	}

	result, err := a.Books.GenerateBook(r.Context(), req)
	if err != nil {
		var vErr *book.ValidationError
		if errors.As(err, &vErr) {
			a.fail(w, http.StatusBadRequest, vErr.Error())
			return
		}
		a.Log.Error().Err(err).Msg("handlers: book generation failed")
		a.fail(w, http.StatusBadGateway, err.Error())
		return
	}
	a.json(w, http.StatusOK, generateResponse{Success: true, Result: result})
}

// readPhoto accepts the upload under either the "photo" or legacy "images"
// form key.
func readPhoto(r *http.Request) ([]byte, error) {
	for _, key := range []string{"photo", "images"} {
		file, _, err := r.FormFile(key)
		if err != nil {
			continue
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
		if err != nil {
			return nil, errors.New("could not read uploaded photo")
		}
		return data, nil
	}
	return nil, errors.New("photo file is required")
}
