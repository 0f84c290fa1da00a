package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func chatServer(t *testing.T, status int, content string, gotUser *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if gotUser != nil && len(req.Messages) == 2 {
			*gotUser = req.Messages[1].Content
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
}

func TestTranslator_Translate(t *testing.T) {
	var gotUser string
	server := chatServer(t, http.StatusOK, " \"red dress\"\n", &gotUser)
	defer server.Close()

	tr := NewTranslator(&TranslatorConfig{APIKey: "k", BaseURL: server.URL, Model: "gpt-test"})
	out, err := tr.Translate(context.Background(), "rotes kleid")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if out != "red dress" {
		t.Errorf("expected trimmed translation, got %q", out)
	}
	if gotUser != "rotes kleid" {
		t.Errorf("expected raw query as user message, got %q", gotUser)
	}
}

func TestTranslator_EmptyTranslation(t *testing.T) {
	server := chatServer(t, http.StatusOK, "   ", nil)
	defer server.Close()

	tr := NewTranslator(&TranslatorConfig{APIKey: "k", BaseURL: server.URL, Model: "gpt-test"})
	if _, err := tr.Translate(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty translation")
	}
}

func TestTranslator_APIError(t *testing.T) {
	server := chatServer(t, http.StatusInternalServerError, "", nil)
	defer server.Close()

	tr := NewTranslator(&TranslatorConfig{APIKey: "k", BaseURL: server.URL, Model: "gpt-test"})
	if _, err := tr.Translate(context.Background(), "x"); err == nil {
		t.Fatal("expected error on API failure")
	}
}
