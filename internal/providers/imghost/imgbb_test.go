package imghost

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{APIKey: "test-key", UploadURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestUpload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Fatalf("key query param = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("image part missing: %v", err)
		}
		file.Close()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"url":"https://i.ibb.co/abc/photo.jpg"},"success":true,"status":200}`))
	})

	url, err := client.Upload(context.Background(), []byte{0xff, 0xd8, 0xff})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://i.ibb.co/abc/photo.jpg" {
		t.Fatalf("url = %q", url)
	}
}

func TestUploadFallsBackToDisplayURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"url":"","display_url":"https://i.ibb.co/abc/display.jpg"},"success":true}`))
	})

	url, err := client.Upload(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://i.ibb.co/abc/display.jpg" {
		t.Fatalf("url = %q", url)
	}
}

func TestUploadNoPublicURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{},"success":true}`))
	})

	_, err := client.Upload(context.Background(), []byte{1})
	if !errors.Is(err, ErrNoPublicURL) {
		t.Fatalf("err = %v, want ErrNoPublicURL", err)
	}
}

func TestUploadRejectsEmptyImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty image")
	})

	if _, err := client.Upload(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty image")
	}
}

func TestUploadSurfacesHTTPFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	})

	if _, err := client.Upload(context.Background(), []byte{1}); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
