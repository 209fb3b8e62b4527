package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/wordwise/internal/extract"
	"github.com/MrWong99/wordwise/internal/tutor"
	"github.com/MrWong99/wordwise/pkg/provider/stt"
)

func (c *cli) explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <word>",
		Short: "Explain a word and suggest a category for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skip, _ := cmd.Flags().GetBool("skip-category")
			svc, err := c.tutor(cmd)
			if err != nil {
				return err
			}
			res, err := svc.Explain(cmd.Context(), args[0], skip)
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
	cmd.Flags().Bool("skip-category", false, "do not ask for a category suggestion")
	return cmd
}

func (c *cli) grammarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grammar <sentence>",
		Short: "Check a sentence written about a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, _ := cmd.Flags().GetString("topic")
			svc, err := c.tutor(cmd)
			if err != nil {
				return err
			}
			res, err := svc.CheckGrammar(cmd.Context(), strings.Join(args, " "), topic)
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
	cmd.Flags().String("topic", "", "topic the sentence is about")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func (c *cli) phraseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phrase <topic>",
		Short: "Generate a practice phrase for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("difficulty")
			d, err := tutor.ParseDifficulty(raw)
			if err != nil {
				return err
			}
			svc, err := c.tutor(cmd)
			if err != nil {
				return err
			}
			res, err := svc.PracticePhrase(cmd.Context(), args[0], d)
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
	cmd.Flags().String("difficulty", string(tutor.Medium), "easy, medium or hard")
	return cmd
}

func (c *cli) topicWordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic-words <topic>",
		Short: "Generate vocabulary for a topic and save it",
		Long: `topic-words asks the model for 20 to 30 words about the topic and adds each
one to the vocabulary under --category (default: the topic itself). Words
already in the vocabulary are left unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			if strings.TrimSpace(category) == "" {
				category = args[0]
			}
			svc, err := c.tutor(cmd)
			if err != nil {
				return err
			}
			res, err := svc.CreateTopicWords(cmd.Context(), c.user, args[0], category)
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
	cmd.Flags().String("category", "", "category to file the words under")
	return cmd
}

func (c *cli) pronounceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pronounce",
		Short: "Transcribe a recording and score it against the target phrase",
		Long: `pronounce sends the recording to the configured transcriber and scores the
transcript against --target. Files ending in .pcm or .raw are treated as
16-bit little-endian mono PCM and wrapped in a WAV header first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("audio")
			target, _ := cmd.Flags().GetString("target")
			lang, _ := cmd.Flags().GetString("language")
			rate, _ := cmd.Flags().GetInt("sample-rate")
			audio, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read audio: %w", err)
			}
			name := filepath.Base(path)
			if ext := filepath.Ext(name); ext == ".pcm" || ext == ".raw" {
				audio = stt.WAV(audio, rate, 1)
				name = strings.TrimSuffix(name, ext) + ".wav"
			}
			svc, err := c.tutor(cmd)
			if err != nil {
				return err
			}
			res, err := svc.EvaluatePronunciation(cmd.Context(), target, stt.Request{
				Audio:    audio,
				Filename: name,
				Language: lang,
			})
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
	cmd.Flags().String("audio", "", "recording to transcribe (WAV, WebM, Ogg, MP3, ...)")
	cmd.Flags().String("target", "", "phrase the learner was asked to say")
	cmd.Flags().String("language", "", "BCP-47 language hint, e.g. en")
	cmd.Flags().Int("sample-rate", 16000, "sample rate of raw 16-bit mono PCM input (.pcm, .raw)")
	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func (c *cli) scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "score <transcript> <target>",
		Short:       "Score a transcript against the target phrase",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{offline: "true"},
		RunE: func(_ *cobra.Command, args []string) error {
			res, err := tutor.Evaluate(args[0], args[1])
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
}

// shapes lists the accepted --shape values of the extract command.
var shapes = []string{
	extract.ShapeExplanation,
	extract.ShapeGrammar,
	extract.ShapePhrase,
	extract.ShapeCategory,
	extract.ShapeTopicWords,
}

func (c *cli) extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Decode model output read from stdin into a structured shape",
		Long: `extract reads raw model output from stdin and decodes it the way the other
commands decode live replies: fenced or bare JSON first, a fallback value of
the same shape otherwise.

Shapes: ` + strings.Join(shapes, ", ") + `.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{offline: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			shape, _ := cmd.Flags().GetString("shape")
			input, _ := cmd.Flags().GetString("input")
			topic, _ := cmd.Flags().GetString("topic")
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			res, err := extractShape(shape, string(raw), input, topic)
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
	cmd.Flags().String("shape", "", "one of "+strings.Join(shapes, ", "))
	cmd.Flags().String("input", "", "learner sentence, for the grammar shape")
	cmd.Flags().String("topic", "", "topic, for the phrase shape")
	_ = cmd.MarkFlagRequired("shape")
	return cmd
}

// extractShape decodes raw into the named shape.
func extractShape(shape, raw, input, topic string) (any, error) {
	switch shape {
	case extract.ShapeExplanation:
		return extract.Extract(raw, extract.ExplanationSchema()), nil
	case extract.ShapeGrammar:
		return extract.Extract(raw, extract.GrammarSchema(input)), nil
	case extract.ShapePhrase:
		return extract.Extract(raw, extract.PracticePhraseSchema(topic)), nil
	case extract.ShapeCategory:
		return extract.Extract(raw, extract.CategorySchema()), nil
	case extract.ShapeTopicWords:
		return extract.Extract(raw, extract.TopicWordsSchema()), nil
	}
	return nil, fmt.Errorf("%w: unknown shape %q; valid shapes: %s",
		tutor.ErrInvalidInput, shape, strings.Join(shapes, ", "))
}
