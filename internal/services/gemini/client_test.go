package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mealvault/internal/services"
	"mealvault/internal/services/gemini"
	"mealvault/internal/transcription"
)

func candidateResponse(text string) string {
	payload := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *gemini.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return gemini.NewClient(gemini.Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-flash-latest",
	})
}

func TestTranscribeParsesResult(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(candidateResponse(`{
			"activity_type": "eating",
			"status": "complete",
			"foods": [{"name": "apple", "weight": 150, "calories": 78}]
		}`)))
	})

	result, err := client.Transcribe(context.Background(), []byte("audio-bytes"), "audio/webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Activity != transcription.ActivityEating || len(result.Foods) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if gotPath != "/models/gemini-flash-latest:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if !strings.Contains(mustJSON(t, gotBody), "inline_data") {
		t.Fatal("request carried no inline audio")
	}
}

func TestTranscribeStripsMarkdownFences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fenced := "```json\n{\"activity_type\":\"eating\",\"foods\":[{\"name\":\"toast\",\"weight\":40,\"calories\":100}]}\n```"
		_, _ = w.Write([]byte(candidateResponse(fenced)))
	})

	result, err := client.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(result.Foods) != 1 || result.Foods[0].Name != "toast" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestTranscribeClassifiesErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		network bool
	}{
		{"server error", http.StatusInternalServerError, "boom", true},
		{"rate limited", http.StatusTooManyRequests, "slow down", true},
		{"bad request", http.StatusBadRequest, "invalid audio", false},
		{"unauthorized", http.StatusForbidden, "bad key", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.Transcribe(context.Background(), []byte("audio"), "audio/webm")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := services.IsNetwork(err); got != tc.network {
				t.Fatalf("IsNetwork = %v for %v, want %v", got, err, tc.network)
			}
		})
	}
}

func TestTranscribeRejectsUnreachableHost(t *testing.T) {
	client := gemini.NewClient(gemini.Config{
		APIKey:         "test-key",
		BaseURL:        "http://127.0.0.1:1",
		TimeoutSeconds: 1,
	})
	_, err := client.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	if !services.IsNetwork(err) {
		t.Fatalf("error = %v, want network", err)
	}
}

func TestTranscribeValidation(t *testing.T) {
	client := gemini.NewClient(gemini.Config{APIKey: "test-key"})
	if _, err := client.Transcribe(context.Background(), nil, "audio/webm"); !services.IsValidation(err) {
		t.Fatalf("empty audio error = %v, want validation", err)
	}

	keyless := gemini.NewClient(gemini.Config{})
	if _, err := keyless.Transcribe(context.Background(), []byte("audio"), "audio/webm"); !services.IsValidation(err) {
		t.Fatalf("missing key error = %v, want validation", err)
	}
}

func TestClarifySendsPriorResult(t *testing.T) {
	var prompt string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			prompt = req.Contents[0].Parts[0].Text
		}
		_, _ = w.Write([]byte(candidateResponse(`{
			"activity_type": "cooking",
			"status": "complete",
			"meals": [{"meal_name": "Soup", "ingredients": [{"name": "carrot", "weight_g": 100, "calories_per_100g": 41}]}]
		}`)))
	})

	prior := &transcription.Result{
		Activity:    transcription.ActivityUnknown,
		Status:      "needs_clarification",
		MissingData: []string{"meal name"},
	}
	result, err := client.Clarify(context.Background(), prior, "It was carrot soup, about 100g of carrots")
	if err != nil {
		t.Fatalf("Clarify: %v", err)
	}
	if result.Activity != transcription.ActivityCooking {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(prompt, "needs_clarification") || !strings.Contains(prompt, "carrot soup") {
		t.Fatalf("prompt missing context: %q", prompt)
	}

	if _, err := client.Clarify(context.Background(), nil, "note"); !services.IsValidation(err) {
		t.Fatalf("nil prior error = %v, want validation", err)
	}
	if _, err := client.Clarify(context.Background(), prior, "  "); !services.IsValidation(err) {
		t.Fatalf("empty note error = %v, want validation", err)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	encoded, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(encoded)
}
