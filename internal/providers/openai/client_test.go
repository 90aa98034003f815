package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-resty/resty/v2"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: resty.New(),
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client, srv
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"content":` + string(mustJSON(content)) + `}}]}`
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{}); err != ErrMissingAPIKey {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestCompleteSendsPromptAndAuth(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("hello")))
	})

	text, err := client.Complete(context.Background(), ChatRequest{Prompt: "say hello", Temperature: 0.5})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "hello" {
		t.Fatalf("text = %q, want %q", text, "hello")
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	messages := gotPayload["messages"].([]any)
	first := messages[0].(map[string]any)
	if first["content"] != "say hello" {
		t.Fatalf("content = %v, want plain string prompt", first["content"])
	}
}

func TestCompleteVisionRequestCarriesImagePart(t *testing.T) {
	var gotPayload map[string]any
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("a child")))
	})

	_, err := client.Complete(context.Background(), ChatRequest{
		Prompt:   "describe",
		ImageURL: "https://img.example/photo.jpg",
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	messages := gotPayload["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("content parts = %d, want 2", len(content))
	}
	imagePart := content[1].(map[string]any)
	if imagePart["type"] != "image_url" {
		t.Fatalf("second part type = %v, want image_url", imagePart["type"])
	}
	ref := imagePart["image_url"].(map[string]any)
	if ref["url"] != "https://img.example/photo.jpg" {
		t.Fatalf("image url = %v", ref["url"])
	}
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	})

	_, err := client.Complete(context.Background(), ChatRequest{Prompt: "hi"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("err = %v, want api error message", err)
	}
}

func TestCompleteRejectsEmptyPrompt(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	if _, err := client.Complete(context.Background(), ChatRequest{Prompt: "  "}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestRepairParseValidJSONSkipsModelCall(t *testing.T) {
	var calls int32
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(completionBody("{}")))
	})

	var dst map[string]any
	if ok := client.RepairParse(context.Background(), `{"age": 7}`, &dst); !ok {
		t.Fatal("RepairParse = false for valid JSON")
	}
	if dst["age"].(float64) != 7 {
		t.Fatalf("dst = %#v", dst)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("model calls = %d, want 0", calls)
	}
}

func TestRepairParseStripsCodeFence(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	var dst map[string]any
	raw := "```json\n{\"gender\": \"girl\"}\n```"
	if ok := client.RepairParse(context.Background(), raw, &dst); !ok {
		t.Fatal("RepairParse = false for fenced JSON")
	}
	if dst["gender"] != "girl" {
		t.Fatalf("dst = %#v", dst)
	}
}

func TestRepairParseCorrectsViaModel(t *testing.T) {
	var calls int32
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(`{"eyeColor": "blue"}`)))
	})

	var dst map[string]any
	if ok := client.RepairParse(context.Background(), `{"eyeColor": blue}`, &dst); !ok {
		t.Fatal("RepairParse = false after correction")
	}
	if dst["eyeColor"] != "blue" {
		t.Fatalf("dst = %#v", dst)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("model calls = %d, want 1", calls)
	}
}

func TestRepairParseReturnsFalseWhenCorrectionFails(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody("still not json")))
	})

	var dst map[string]any
	if ok := client.RepairParse(context.Background(), `{"broken":`, &dst); ok {
		t.Fatal("RepairParse = true for unrepairable input")
	}
}
