package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"quizblitz/internal/domain"
	"quizblitz/internal/render"
)

func newQuizCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Manage your quizzes",
	}
	cmd.AddCommand(
		newQuizListCmd(flags),
		newQuizShowCmd(flags),
		newQuizCreateCmd(flags),
		newQuizDeleteCmd(flags),
		newQuizAddQuestionCmd(flags),
		newQuizRemoveQuestionCmd(flags),
		newQuizImportCmd(flags),
	)
	return cmd
}

func newQuizListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the quizzes you host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := flags.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.store.LoadQuizzes(cmd.Context()); err != nil {
				return err
			}
			render.QuizList(cmd.OutOrStdout(), env.store.Snapshot().Quizzes)
			return nil
		},
	}
}

func newQuizShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <quiz>",
		Short: "Print a quiz with its answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			quiz, err := loadQuiz(cmd, env, args[0])
			if err != nil {
				return err
			}
			render.Quiz(cmd.OutOrStdout(), quiz)
			return nil
		},
	}
}

func newQuizCreateCmd(flags *globalFlags) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty quiz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			env, err := flags.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			quiz, err := env.store.CreateQuiz(cmd.Context(), title, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created quiz %s (%s)\n", quiz.Title, quiz.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "quiz title")
	cmd.Flags().StringVar(&description, "description", "", "quiz description")
	return cmd
}

func newQuizDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <quiz>",
		Short: "Delete a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			quiz, err := loadQuiz(cmd, env, args[0])
			if err != nil {
				return err
			}
			if err := env.store.DeleteQuiz(cmd.Context(), quiz.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", quiz.Title)
			return nil
		},
	}
}

func newQuizAddQuestionCmd(flags *globalFlags) *cobra.Command {
	var (
		text      string
		options   []string
		correct   string
		timeLimit int
	)
	cmd := &cobra.Command{
		Use:   "add-question <quiz>",
		Short: "Append a question to a quiz",
		Example: `  quizblitz quiz add-question geo --text "Capital of France?" \
    --option Paris --option Rome --option Madrid --option Berlin --correct A`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, ok := render.ParseOption(correct)
			if !ok {
				return fmt.Errorf("--correct must be one of A-D or 1-%d", domain.OptionCount)
			}
			draft := domain.QuestionDraft{
				// Shells make literal newlines awkward; accept \n instead.
				Text:         strings.ReplaceAll(text, `\n`, "\n"),
				Options:      options,
				CorrectIndex: idx,
				TimeLimit:    timeLimit,
			}

			env, err := flags.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			quiz, err := loadQuiz(cmd, env, args[0])
			if err != nil {
				return err
			}
			if err := env.store.AddQuestion(cmd.Context(), quiz.ID, draft); err != nil {
				return err
			}
			updated, _ := findQuiz(env.store.Snapshot().Quizzes, quiz.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d question(s)\n", updated.Title, len(updated.Questions))
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "question text")
	cmd.Flags().StringArrayVar(&options, "option", nil, fmt.Sprintf("answer option, repeat %d times", domain.OptionCount))
	cmd.Flags().StringVar(&correct, "correct", "A", "correct option (A-D or 1-4)")
	cmd.Flags().IntVar(&timeLimit, "time", domain.DefaultTimeLimit, "time limit in seconds")
	return cmd
}

func newQuizRemoveQuestionCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-question <quiz> <question-id>",
		Short: "Remove a question from a quiz",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			quiz, err := loadQuiz(cmd, env, args[0])
			if err != nil {
				return err
			}
			return env.store.RemoveQuestion(cmd.Context(), quiz.ID, args[1])
		},
	}
}

func newQuizImportCmd(flags *globalFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a quiz from a plain-text question file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			env, err := flags.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			draft, err := env.store.ImportQuiz(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			if draft.Title == "" {
				draft.Title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "%s: %d question(s) parsed\n", draft.Title, len(draft.Questions))
				return nil
			}
			quiz, err := env.store.SaveDraft(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %s (%s) with %d question(s)\n", quiz.Title, quiz.ID, len(quiz.Questions))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse only, do not save")
	return cmd
}

// loadQuiz refreshes the quiz list and resolves ref against it.
func loadQuiz(cmd *cobra.Command, env *clientEnv, ref string) (domain.Quiz, error) {
	if err := env.store.LoadQuizzes(cmd.Context()); err != nil {
		return domain.Quiz{}, err
	}
	quiz, ok := findQuiz(env.store.Snapshot().Quizzes, ref)
	if !ok {
		return domain.Quiz{}, fmt.Errorf("quiz %q: %w", ref, domain.ErrNotFound)
	}
	return quiz, nil
}

// findQuiz matches ref against ids first, then titles (case-insensitive).
func findQuiz(quizzes []domain.Quiz, ref string) (domain.Quiz, bool) {
	for _, q := range quizzes {
		if q.ID == ref {
			return q, true
		}
	}
	for _, q := range quizzes {
		if strings.EqualFold(q.Title, ref) {
			return q, true
		}
	}
	return domain.Quiz{}, false
}
