package main

import (
	"github.com/spf13/cobra"

	"github.com/MrWong99/wordwise/internal/tutor"
)

// deletion is printed by the rm commands.
type deletion struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// ── Vocabulary ────────────────────────────────────────────────────────────────

func (c *cli) vocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Manage vocabulary words",
	}
	cmd.AddCommand(c.vocabAddCmd(), c.vocabListCmd(), c.vocabUpdateCmd(), c.vocabRmCmd(), c.vocabClearCmd())
	return cmd
}

func (c *cli) vocabAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <term>",
		Short: "Add a word, creating its category when needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			w := tutor.NewWord{Term: args[0]}
			w.Meanings, _ = f.GetString("meanings")
			w.Examples, _ = f.GetString("examples")
			w.Description, _ = f.GetString("description")
			w.CategoryName, _ = f.GetString("category")

			svc, err := c.tutor(cmd)
			if err != nil {
				return err
			}
			res, err := svc.AddWord(cmd.Context(), c.user, w)
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
	wordFlags(cmd)
	return cmd
}

func (c *cli) vocabListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List words, newest first, and categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.tutor(cmd)
			if err != nil {
				return err
			}
			res, err := svc.ListVocabulary(cmd.Context(), c.user)
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
}

func (c *cli) vocabUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var p tutor.WordPatch
			for name, dst := range map[string]**string{
				"term":        &p.Term,
				"meanings":    &p.Meanings,
				"examples":    &p.Examples,
				"description": &p.Description,
				"status":      &p.Status,
				"category":    &p.CategoryName,
			} {
				if !f.Changed(name) {
					continue
				}
				v, _ := f.GetString(name)
				*dst = &v
			}

			svc, err := c.tutor(cmd)
			if err != nil {
				return err
			}
			res, err := svc.UpdateWord(cmd.Context(), c.user, args[0], p)
			if err != nil {
				return err
			}
			return c.print(res)
		},
	}
	wordFlags(cmd)
	cmd.Flags().String("term", "", "new spelling of the word")
	cmd.Flags().String("status", "", "pending or completed")
	return cmd
}

// wordFlags declares the flags shared by vocab add and vocab update.
func wordFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("meanings", "", "meanings of the word")
	f.String("examples", "", "example sentences")
	f.String("description", "", "free-form notes")
	f.String("category", "", "category name (default General on add)")
}

func (c *cli) vocabRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.tutor(cmd)
			if err != nil {
				return err
			}
			ok, err := svc.DeleteWord(cmd.Context(), c.user, args[0])
			if err != nil {
				return err
			}
			return c.print(deletion{ID: args[0], Deleted: ok})
		},
	}
}

func (c *cli) vocabClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <category-id>",
		Short: "Delete every word in a category, keeping the category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.tutor(cmd)
			if err != nil {
				return err
			}
			n, err := svc.ClearCategoryWords(cmd.Context(), c.user, args[0])
			if err != nil {
				return err
			}
			return c.print(struct {
				CategoryID   string `json:"categoryId"`
				WordsRemoved int    `json:"wordsRemoved"`
			}{args[0], n})
		},
	}
}

// ── Categories ────────────────────────────────────────────────────────────────

func (c *cli) categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage word categories",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create a category, or return the one with the same name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := c.tutor(cmd)
				if err != nil {
					return err
				}
				res, err := svc.CreateCategory(cmd.Context(), c.user, args[0])
				if err != nil {
					return err
				}
				return c.print(res)
			},
		},
		&cobra.Command{
			Use:   "rename <id> <name>",
			Short: "Rename a category and the name stored on its words",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := c.tutor(cmd)
				if err != nil {
					return err
				}
				res, err := svc.RenameCategory(cmd.Context(), c.user, args[0], args[1])
				if err != nil {
					return err
				}
				return c.print(res)
			},
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a category and its words",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := c.tutor(cmd)
				if err != nil {
					return err
				}
				res, err := svc.DeleteCategory(cmd.Context(), c.user, args[0])
				if err != nil {
					return err
				}
				return c.print(res)
			},
		},
	)
	return cmd
}

// ── Topics ────────────────────────────────────────────────────────────────────

func (c *cli) topicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic",
		Short: "Manage practice topics",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <title>",
			Short: "Create a topic",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := c.tutor(cmd)
				if err != nil {
					return err
				}
				res, err := svc.CreateTopic(cmd.Context(), c.user, args[0])
				if err != nil {
					return err
				}
				return c.print(res)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List topics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := c.tutor(cmd)
				if err != nil {
					return err
				}
				res, err := svc.ListTopics(cmd.Context(), c.user)
				if err != nil {
					return err
				}
				return c.print(res)
			},
		},
		&cobra.Command{
			Use:   "update <id> <title>",
			Short: "Change the title of a topic",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := c.tutor(cmd)
				if err != nil {
					return err
				}
				res, err := svc.UpdateTopic(cmd.Context(), c.user, args[0], args[1])
				if err != nil {
					return err
				}
				return c.print(res)
			},
		},
		&cobra.Command{
			Use:   "rm <id>",
			Short: "Delete a topic",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := c.tutor(cmd)
				if err != nil {
					return err
				}
				ok, err := svc.DeleteTopic(cmd.Context(), c.user, args[0])
				if err != nil {
					return err
				}
				return c.print(deletion{ID: args[0], Deleted: ok})
			},
		},
	)
	return cmd
}
