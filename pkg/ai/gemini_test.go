package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func imageServer(t *testing.T, handler func(w http.ResponseWriter, body generateRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handler(w, req)
	}))
}

func respondWithImage(w http.ResponseWriter, payload []byte) {
	resp := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{
					{"text": "behold"},
					{"inlineData": map[string]string{
						"mimeType": "image/png",
						"data":     base64.StdEncoding.EncodeToString(payload),
					}},
				},
			},
		}},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestGenerateImageExtractsPayload(t *testing.T) {
	want := []byte("png-bytes")
	srv := imageServer(t, func(w http.ResponseWriter, req generateRequest) {
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text == "" {
			t.Errorf("instruction missing from request: %+v", req)
		}
		if req.GenerationConfig == nil || len(req.GenerationConfig.ResponseModalities) != 2 {
			t.Errorf("generation config missing modalities: %+v", req.GenerationConfig)
		}
		if len(req.SafetySettings) != 5 {
			t.Errorf("expected 5 safety settings, got %d", len(req.SafetySettings))
		}
		respondWithImage(w, want)
	})
	defer srv.Close()

	client, err := NewGeminiClient("test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.WithBaseURL(srv.URL)
	got, err := client.GenerateImage(context.Background(), "image-model", "a lone wolf", nil, Sampling{Temperature: 1, TopP: 0.95, TopK: 40, MaxOutputTokens: 8192})
	if err != nil {
		t.Fatalf("generate image: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("image = %q, want %q", got, want)
	}
}

func TestGenerateImageSendsSourceImage(t *testing.T) {
	source := []byte("source-png")
	srv := imageServer(t, func(w http.ResponseWriter, req generateRequest) {
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[1].InlineData == nil {
			t.Errorf("source image part missing: %+v", parts)
			respondWithImage(w, []byte("x"))
			return
		}
		decoded, _ := base64.StdEncoding.DecodeString(parts[1].InlineData.Data)
		if string(decoded) != string(source) {
			t.Errorf("source bytes = %q, want %q", decoded, source)
		}
		if parts[1].InlineData.MIMEType != "image/jpeg" {
			t.Errorf("mime = %q, want image/jpeg", parts[1].InlineData.MIMEType)
		}
		respondWithImage(w, []byte("result"))
	})
	defer srv.Close()

	client, _ := NewGeminiClient("test-key")
	client.WithBaseURL(srv.URL)
	if _, err := client.GenerateImage(context.Background(), "m", "mutate it", &SourceImage{MIMEType: "image/jpeg", Data: source}, Sampling{}); err != nil {
		t.Fatalf("generate image: %v", err)
	}
}

func TestGenerateImageEmptyResponse(t *testing.T) {
	srv := imageServer(t, func(w http.ResponseWriter, _ generateRequest) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})
	defer srv.Close()

	client, _ := NewGeminiClient("test-key")
	client.WithBaseURL(srv.URL)
	_, err := client.GenerateImage(context.Background(), "m", "x", nil, Sampling{})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestGenerateImageNoImagePart(t *testing.T) {
	srv := imageServer(t, func(w http.ResponseWriter, _ generateRequest) {
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "words, no pixels"}},
				},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	defer srv.Close()

	client, _ := NewGeminiClient("test-key")
	client.WithBaseURL(srv.URL)
	_, err := client.GenerateImage(context.Background(), "m", "x", nil, Sampling{})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
}

func TestGenerateImageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded upstream"}}`))
	}))
	defer srv.Close()

	client, _ := NewGeminiClient("test-key")
	client.WithBaseURL(srv.URL)
	_, err := client.GenerateImage(context.Background(), "m", "x", nil, Sampling{})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded upstream") {
		t.Fatalf("err = %v, want api error message", err)
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient("  "); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}
