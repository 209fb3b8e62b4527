package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/wordwise/internal/app"
	"github.com/MrWong99/wordwise/internal/config"
	"github.com/MrWong99/wordwise/internal/observe"
	"github.com/MrWong99/wordwise/internal/tutor"
	"github.com/MrWong99/wordwise/pkg/docstore"
	"github.com/MrWong99/wordwise/pkg/provider/llm"
	llmmock "github.com/MrWong99/wordwise/pkg/provider/llm/mock"
	sttmock "github.com/MrWong99/wordwise/pkg/provider/stt/mock"
)

// harness runs commands against shared collaborators, one fresh command
// tree per invocation.
type harness struct {
	t          *testing.T
	providers  *app.Providers
	configPath string
}

func newHarness(t *testing.T, ps *app.Providers) *harness {
	t.Helper()
	if ps.Store == nil {
		ps.Store = docstore.NewMemory()
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "server:\n  log_level: warn\ntutor:\n  default_user: tester\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &harness{t: t, providers: ps, configPath: path}
}

// run executes args and returns stdout.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	c := newCLI(strings.NewReader(stdin), &out, new(slog.LevelVar))
	c.providers = func(context.Context, *config.Config) (*app.Providers, []func() error, error) {
		return h.providers, nil, nil
	}
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		h.t.Fatalf("NewMetrics: %v", err)
	}
	c.appOpts = []app.Option{app.WithMetrics(m)}

	root := c.rootCmd()
	root.SetArgs(append([]string{"--config", h.configPath}, args...))
	root.SetErr(&bytes.Buffer{})
	err = root.ExecuteContext(context.Background())
	if cerr := c.close(context.Background()); cerr != nil {
		h.t.Errorf("close: %v", cerr)
	}
	return out.String(), err
}

// decode runs args and unmarshals the JSON output into v.
func (h *harness) decode(v any, args ...string) {
	h.t.Helper()
	out, err := h.run("", args...)
	if err != nil {
		h.t.Fatalf("%v: %v", args, err)
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		h.t.Fatalf("%v: decode %q: %v", args, out, err)
	}
}

func TestScore_Offline(t *testing.T) {
	is := is.New(t)

	var out bytes.Buffer
	c := newCLI(strings.NewReader(""), &out, new(slog.LevelVar))
	root := c.rootCmd()
	root.SetArgs([]string{"--config", "/does/not/exist.yaml", "score", "hello world", "Hello World"})
	is.NoErr(root.Execute()) // offline commands ignore the config

	var got tutor.Attempt
	is.NoErr(json.Unmarshal(out.Bytes(), &got))
	is.Equal(got.Score, 100)
	is.True(got.IsCorrect)
	is.True(c.app == nil) // no collaborators were built
}

func TestScore_BlankTranscript(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, &app.Providers{})

	_, err := h.run("", "score", " ", "hello")
	is.True(errors.Is(err, tutor.ErrEmptyInput))
}

func TestExtract(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, &app.Providers{})

	out, err := h.run("```json\n{\"category\": \"Food\"}\n```", "extract", "--shape", "category")
	is.NoErr(err)
	var cat struct {
		Kind  string `json:"kind"`
		Value struct {
			Category string `json:"category"`
		} `json:"value"`
	}
	is.NoErr(json.Unmarshal([]byte(out), &cat))
	is.Equal(cat.Kind, "ok")
	is.Equal(cat.Value.Category, "Food")

	out, err = h.run("Let's go to the beach.", "extract", "--shape", "phrase", "--topic", "holidays")
	is.NoErr(err)
	var phrase struct {
		Kind  string `json:"kind"`
		Value struct {
			Phrase string `json:"phrase"`
		} `json:"value"`
	}
	is.NoErr(json.Unmarshal([]byte(out), &phrase))
	is.Equal(phrase.Kind, "fallback")
	is.True(strings.Contains(phrase.Value.Phrase, "holidays"))

	_, err = h.run("{}", "extract", "--shape", "poem")
	is.True(errors.Is(err, tutor.ErrInvalidInput))
}

func TestVocab_Lifecycle(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, &app.Providers{})

	var added tutor.AddedWord
	h.decode(&added, "vocab", "add", "Apple", "--category", "Food", "--meanings", "a fruit")
	is.True(added.IsNew)
	is.Equal(added.Term, "apple")
	is.Equal(added.CategoryName, "Food")

	var again tutor.AddedWord
	h.decode(&again, "vocab", "add", "apple")
	is.True(!again.IsNew)
	is.Equal(again.ID, added.ID)

	var updated tutor.Word
	h.decode(&updated, "vocab", "update", added.ID, "--status", "completed")
	is.Equal(updated.Status, "completed")
	is.Equal(updated.Meanings, "a fruit") // untouched fields survive

	var list tutor.Vocabulary
	h.decode(&list, "vocab", "list")
	is.Equal(len(list.Words), 1)
	is.Equal(len(list.Categories), 1)

	var del deletion
	h.decode(&del, "vocab", "rm", added.ID)
	is.True(del.Deleted)

	h.decode(&list, "vocab", "list")
	is.Equal(len(list.Words), 0)
}

func TestVocab_UpdateWithoutFlags(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, &app.Providers{})

	_, err := h.run("", "vocab", "update", "word_1")
	is.True(errors.Is(err, tutor.ErrEmptyInput))
}

func TestVocab_UserFlagSeparatesData(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, &app.Providers{})

	var added tutor.AddedWord
	h.decode(&added, "--user", "alice", "vocab", "add", "tree")

	var list tutor.Vocabulary
	h.decode(&list, "vocab", "list")
	is.Equal(len(list.Words), 0) // default user sees nothing

	h.decode(&list, "--user", "alice", "vocab", "list")
	is.Equal(len(list.Words), 1)
}

func TestCategory_RenameAndRemove(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, &app.Providers{})

	var word tutor.AddedWord
	h.decode(&word, "vocab", "add", "carrot", "--category", "Veg")

	var renamed tutor.Category
	h.decode(&renamed, "category", "rename", word.CategoryID, "Vegetables")
	is.Equal(renamed.Name, "Vegetables")

	var list tutor.Vocabulary
	h.decode(&list, "vocab", "list")
	is.Equal(list.Words[0].CategoryName, "Vegetables")

	var gone tutor.CategoryDeletion
	h.decode(&gone, "category", "rm", word.CategoryID)
	is.True(gone.Deleted)
	is.Equal(gone.WordsRemoved, 1)
}

func TestTopic_CRUD(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, &app.Providers{})

	var topic tutor.Topic
	h.decode(&topic, "topic", "add", "Travel")
	is.Equal(topic.Title, "Travel")

	var updated tutor.Topic
	h.decode(&updated, "topic", "update", topic.ID, "Holidays")
	is.Equal(updated.Title, "Holidays")

	var topics []tutor.Topic
	h.decode(&topics, "topic", "list")
	is.Equal(len(topics), 1)
	is.Equal(topics[0].Title, "Holidays")

	var del deletion
	h.decode(&del, "topic", "rm", topic.ID)
	is.True(del.Deleted)
}

func TestExplain(t *testing.T) {
	is := is.New(t)
	p := &llmmock.Provider{Reply: func(req llm.CompletionRequest) (string, error) {
		if strings.Contains(req.Messages[0].Content, `"category"`) {
			return `{"category": "Food"}`, nil
		}
		return `{"definition": "- a fruit", "examples": "- An apple a day."}`, nil
	}}
	h := newHarness(t, &app.Providers{LLM: p})

	var got tutor.Explanation
	h.decode(&got, "explain", "apple")
	is.Equal(got.Word, "apple")
	is.Equal(got.Definition, "- a fruit")
	is.Equal(got.SuggestedCategory, "Food")

	h.decode(&got, "explain", "pear", "--skip-category")
	is.Equal(p.CallCount(), 3)
}

func TestExplain_WithoutModel(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, &app.Providers{})

	_, err := h.run("", "explain", "apple")
	is.True(errors.Is(err, tutor.ErrNotConfigured))
}

func TestGrammar_RequiresTopic(t *testing.T) {
	is := is.New(t)
	p := &llmmock.Provider{}
	h := newHarness(t, &app.Providers{LLM: p})

	_, err := h.run("", "grammar", "I", "has", "a", "dog")
	is.True(err != nil)
	is.Equal(p.CallCount(), 0)
}

func TestGrammar(t *testing.T) {
	is := is.New(t)
	p := &llmmock.Provider{Responses: []string{
		`{"isCorrect": false, "feedback": "Use have.", "suggestions": ["I have a dog."]}`,
	}}
	h := newHarness(t, &app.Providers{LLM: p})

	var got struct {
		Kind  string `json:"kind"`
		Value struct {
			IsCorrect bool `json:"isCorrect"`
		} `json:"value"`
	}
	h.decode(&got, "grammar", "I", "has", "a", "dog", "--topic", "pets")
	is.Equal(got.Kind, "ok")
	is.True(!got.Value.IsCorrect)
	is.True(strings.Contains(p.LastPrompt(), "I has a dog"))
}

func TestPhrase_InvalidDifficulty(t *testing.T) {
	is := is.New(t)
	p := &llmmock.Provider{}
	h := newHarness(t, &app.Providers{LLM: p})

	_, err := h.run("", "phrase", "travel", "--difficulty", "extreme")
	is.True(errors.Is(err, tutor.ErrInvalidInput))
	is.Equal(p.CallCount(), 0)
}

func TestTopicWords_DefaultsCategoryToTopic(t *testing.T) {
	is := is.New(t)
	p := &llmmock.Provider{Responses: []string{`[
		{"term": "Passport", "meanings": "travel document", "examples": "Show your passport."},
		{"term": "Luggage", "meanings": "bags", "examples": "My luggage is heavy."}
	]`}}
	h := newHarness(t, &app.Providers{LLM: p})

	var got tutor.TopicWords
	h.decode(&got, "topic-words", "Travel")
	is.Equal(len(got.Words), 2)
	is.Equal(got.Words[0].Term, "passport")
	is.Equal(got.Words[0].CategoryName, "Travel")
}

func TestPronounce(t *testing.T) {
	is := is.New(t)
	tr := &sttmock.Transcriber{Text: "good morning"}
	h := newHarness(t, &app.Providers{STT: tr})

	audio := filepath.Join(t.TempDir(), "attempt.wav")
	is.NoErr(os.WriteFile(audio, []byte("RIFF\x00\x00\x00\x00WAVEfmt "), 0o600))

	var got tutor.Attempt
	h.decode(&got, "pronounce", "--audio", audio, "--target", "Good morning", "--language", "en")
	is.Equal(got.Score, 100)
	is.Equal(len(tr.Calls), 1)
	is.Equal(tr.Calls[0].Req.Filename, "attempt.wav")
	is.Equal(tr.Calls[0].Req.Language, "en")

	_, err := h.run("", "pronounce", "--audio", filepath.Join(t.TempDir(), "missing.wav"), "--target", "hi")
	is.True(errors.Is(err, os.ErrNotExist))
}

func TestPronounce_WrapsRawPCM(t *testing.T) {
	is := is.New(t)
	tr := &sttmock.Transcriber{Text: "hello"}
	h := newHarness(t, &app.Providers{STT: tr})

	pcm := filepath.Join(t.TempDir(), "take1.pcm")
	is.NoErr(os.WriteFile(pcm, []byte{1, 0, 2, 0}, 0o600))

	var got tutor.Attempt
	h.decode(&got, "pronounce", "--audio", pcm, "--target", "hello", "--sample-rate", "8000")
	is.Equal(got.Score, 100)

	req := tr.Calls[0].Req
	is.Equal(req.Filename, "take1.wav")
	is.Equal(len(req.Audio), 44+4)
	is.Equal(string(req.Audio[:4]), "RIFF")
}

func TestConfig_NamedFileMustExist(t *testing.T) {
	is := is.New(t)

	c := newCLI(strings.NewReader(""), &bytes.Buffer{}, new(slog.LevelVar))
	root := c.rootCmd()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "topic", "list"})
	err := root.Execute()
	is.True(errors.Is(err, os.ErrNotExist))
}

func TestConfig_SetsLogLevel(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, &app.Providers{})

	var out bytes.Buffer
	level := new(slog.LevelVar)
	c := newCLI(strings.NewReader(""), &out, level)
	c.providers = func(context.Context, *config.Config) (*app.Providers, []func() error, error) {
		return h.providers, nil, nil
	}
	root := c.rootCmd()
	root.SetArgs([]string{"--config", h.configPath, "topic", "list"})
	is.NoErr(root.Execute())
	is.NoErr(c.close(context.Background()))
	is.Equal(level.Level(), slog.LevelWarn)
}

func TestApplyChanges(t *testing.T) {
	is := is.New(t)

	level := new(slog.LevelVar)
	c := newCLI(strings.NewReader(""), &bytes.Buffer{}, level)
	c.applyChanges(nil, nil, config.Changes{LogLevelChanged: true, NewLogLevel: config.LogDebug})
	is.Equal(level.Level(), slog.LevelDebug)

	c.applyChanges(nil, nil, config.Changes{RestartRequired: []string{"store"}})
	is.Equal(level.Level(), slog.LevelDebug) // restart-only changes leave the level alone
}

func TestServe_StopsWithContext(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, &app.Providers{})

	var out bytes.Buffer
	c := newCLI(strings.NewReader(""), &out, new(slog.LevelVar))
	c.providers = func(context.Context, *config.Config) (*app.Providers, []func() error, error) {
		return h.providers, nil, nil
	}
	root := c.rootCmd()
	root.SetArgs([]string{"--config", h.configPath, "serve"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	is.NoErr(root.ExecuteContext(ctx))
	is.True(c.app != nil)
	is.NoErr(c.close(context.Background()))
}

func TestSlogLevel(t *testing.T) {
	is := is.New(t)
	is.Equal(slogLevel(config.LogDebug), slog.LevelDebug)
	is.Equal(slogLevel(config.LogWarn), slog.LevelWarn)
	is.Equal(slogLevel(config.LogError), slog.LevelError)
	is.Equal(slogLevel(""), slog.LevelInfo)
}
