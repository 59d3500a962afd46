package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAICompatClient(t *testing.T) {
	client := NewOpenAICompatClient("http://localhost:11434/v1/", "", "llama3.2", 0)
	assert.Equal(t, "llama3.2", client.GetModel())
	assert.Equal(t, "http://localhost:11434/v1", client.baseURL)
	assert.Equal(t, 120*time.Second, client.httpClient.Timeout)
}

func TestGenerateInference(t *testing.T) {
	var captured openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		response := openAIResponse{
			Choices: []openAIChoice{
				{Message: openAIMessage{Content: "Plant rice after the first heavy rains."}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := NewOpenAICompatClient(server.URL+"/v1", "", "llama3.2", 5*time.Second)

	var got string
	err := client.GenerateInference(context.Background(),
		[]Message{{Role: "user", Content: "When to plant rice?"}},
		func(chunk string) error {
			got += chunk
			return nil
		},
		WithTemperature(0.3),
		WithMaxTokens(256),
		WithSystemPrompt("You are an agronomist."),
	)
	require.NoError(t, err)
	assert.Equal(t, "Plant rice after the first heavy rains.", got)

	assert.Equal(t, "llama3.2", captured.Model)
	assert.InDelta(t, 0.3, captured.Temperature, 1e-9)
	assert.Equal(t, 256, captured.MaxTokens)
	assert.False(t, captured.Stream)

	// System prompt option is prepended before the user message.
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "You are an agronomist.", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
}

func TestGenerateInferenceAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(openAIResponse{
			Choices: []openAIChoice{{Message: openAIMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	client := NewOpenAICompatClient(server.URL, "test-key", "llama3.2", 5*time.Second)
	err := client.GenerateInference(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, func(string) error { return nil })
	require.NoError(t, err)
}

func TestGenerateInferenceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOpenAICompatClient(server.URL, "", "llama3.2", 5*time.Second)
	err := client.GenerateInference(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, func(string) error { return nil })
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestGenerateInferenceBackendDown(t *testing.T) {
	// Nothing listens on this port.
	client := NewOpenAICompatClient("http://127.0.0.1:1", "", "llama3.2", time.Second)
	err := client.GenerateInference(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, func(string) error { return nil })
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestGenerateInferenceClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewOpenAICompatClient(server.URL, "", "llama3.2", 5*time.Second)
	err := client.GenerateInference(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, func(string) error { return nil })
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBackendUnavailable)
}

func TestGenerateInferenceNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIResponse{})
	}))
	defer server.Close()

	client := NewOpenAICompatClient(server.URL, "", "llama3.2", 5*time.Second)
	err := client.GenerateInference(context.Background(),
		[]Message{{Role: "user", Content: "hi"}}, func(string) error { return nil })
	assert.Error(t, err)
}

func TestIsConfigured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		json.NewEncoder(w).Encode(openAIModelList{})
	}))
	defer server.Close()

	client := NewOpenAICompatClient(server.URL+"/v1", "", "llama3.2", 5*time.Second)
	assert.True(t, client.IsConfigured(context.Background()))

	down := NewOpenAICompatClient("http://127.0.0.1:1", "", "llama3.2", time.Second)
	assert.False(t, down.IsConfigured(context.Background()))
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"llama3.2"},{"id":"nomic-embed-text"}]}`))
	}))
	defer server.Close()

	client := NewOpenAICompatClient(server.URL, "", "llama3.2", 5*time.Second)
	assert.Equal(t, []string{"llama3.2", "nomic-embed-text"}, client.ListModels(context.Background()))
}
