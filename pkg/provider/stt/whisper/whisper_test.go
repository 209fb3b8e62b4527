package whisper_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MrWong99/wordwise/pkg/provider/stt"
	"github.com/MrWong99/wordwise/pkg/provider/stt/whisper"
)

// inferenceRequest captures what the fake server received.
type inferenceRequest struct {
	filename string
	audio    []byte
	language string
	model    string
	format   string
}

// newFakeServer responds to POST /inference with the given status and body
// and stores the parsed multipart request in *got.
func newFakeServer(t *testing.T, status int, body string, got *inferenceRequest, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if hits != nil {
			hits.Add(1)
		}
		if got != nil {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm: %v", err)
			}
			f, hdr, err := r.FormFile("file")
			if err != nil {
				t.Errorf("FormFile: %v", err)
			} else {
				got.filename = hdr.Filename
				got.audio, _ = io.ReadAll(f)
				_ = f.Close()
			}
			got.language = r.FormValue("language")
			got.model = r.FormValue("model")
			got.format = r.FormValue("response_format")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	t.Parallel()

	if _, err := whisper.New(""); err == nil {
		t.Fatal("expected error for empty serverURL")
	}
}

func TestTranscribe_SendsMultipartAndReturnsText(t *testing.T) {
	t.Parallel()

	var got inferenceRequest
	resp, _ := json.Marshal(map[string]string{"text": "  hello world \n"})
	srv := newFakeServer(t, http.StatusOK, string(resp), &got, nil)

	p, err := whisper.New(srv.URL+"/", whisper.WithModel("base.en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	audio := stt.WAV([]byte{1, 0, 2, 0}, 16000, 1)
	text, err := p.Transcribe(context.Background(), stt.Request{Audio: audio})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if got.filename != "audio.wav" {
		t.Errorf("filename = %q", got.filename)
	}
	if string(got.audio) != string(audio) {
		t.Error("audio bytes were not forwarded unchanged")
	}
	if got.language != "en" || got.model != "base.en" || got.format != "json" {
		t.Errorf("fields = %+v", got)
	}
}

func TestTranscribe_RequestLanguageOverridesDefault(t *testing.T) {
	t.Parallel()

	var got inferenceRequest
	srv := newFakeServer(t, http.StatusOK, `{"text":"hallo"}`, &got, nil)

	p, _ := whisper.New(srv.URL, whisper.WithLanguage("fr"))
	if _, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte("OggS-data"), Language: "de"}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.language != "de" {
		t.Errorf("language = %q, want de", got.language)
	}
	if got.filename != "audio.ogg" {
		t.Errorf("filename = %q, want audio.ogg", got.filename)
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newFakeServer(t, http.StatusOK, `{"text":"x"}`, nil, &hits)
	p, _ := whisper.New(srv.URL)

	_, err := p.Transcribe(context.Background(), stt.Request{})
	if !errors.Is(err, stt.ErrEmptyAudio) {
		t.Fatalf("err = %v, want ErrEmptyAudio", err)
	}
	if hits.Load() != 0 {
		t.Error("server must not be called for empty audio")
	}
}

func TestTranscribe_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusInternalServerError, body: `boom`},
		{name: "bad json", status: http.StatusOK, body: `not json`},
		{name: "error field", status: http.StatusOK, body: `{"error":"failed to read WAV file"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var hits atomic.Int32
			srv := newFakeServer(t, tt.status, tt.body, nil, &hits)
			p, _ := whisper.New(srv.URL)
			if _, err := p.Transcribe(context.Background(), stt.Request{Audio: []byte("RIFF")}); err == nil {
				t.Fatal("expected error")
			}
			if hits.Load() != 1 {
				t.Errorf("server hit %d times, want exactly 1", hits.Load())
			}
		})
	}
}

func TestTranscribe_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t, http.StatusOK, `{"text":"x"}`, nil, nil)
	p, _ := whisper.New(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Transcribe(ctx, stt.Request{Audio: []byte("RIFF")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
