package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quizblitz/internal/domain"
	"quizblitz/internal/render"
	"quizblitz/internal/session"
)

const hostHelp = "Commands: start, skip|leaderboard (end the question now), next, end, quit"

func newHostCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "host <quiz>",
		Short: "Open a game for one of your quizzes and run it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := flags.openClient(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			quiz, err := loadQuiz(cmd, env, args[0])
			if err != nil {
				return err
			}
			if len(quiz.Questions) == 0 {
				return fmt.Errorf("quiz %q has no questions", quiz.Title)
			}

			h := &hostConsole{store: env.store, out: cmd.OutOrStdout(), timing: defaultTiming}
			return h.run(ctx, quiz, readLines(cmd.InOrStdin()))
		},
	}
}

// hostConsole runs a game from the host's terminal. The countdown and the
// question timer are driven locally; the host may also skip ahead.
type hostConsole struct {
	store  *session.Store
	out    io.Writer
	timing timing
}

func (h *hostConsole) run(ctx context.Context, quiz domain.Quiz, lines <-chan string) error {
	pin, err := h.store.CreateGame(ctx, quiz)
	if err != nil {
		return err
	}
	defer leaveQuietly(h.store)

	if err := render.Pin(h.out, pin, "quizblitz join "+pin); err != nil {
		return err
	}
	fmt.Fprintln(h.out, hostHelp)

	updates, cancel := h.store.Subscribe()
	defer cancel()

	var (
		shown   view
		timer   <-chan time.Time
		onTimer func(context.Context) error
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			if st.Game == nil {
				continue
			}
			v := viewOf(st)
			if v == shown {
				continue
			}
			if v.phaseChanged(shown) {
				timer, onTimer = h.schedule(st.Game)
			}
			h.draw(st.Game, v, shown)
			shown = v
			if st.Game.Status == domain.StatusFinished {
				return nil
			}
		case <-timer:
			timer = nil
			if err := onTimer(ctx); err != nil {
				printErr(h.out, err)
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := h.command(ctx, line)
			if err != nil {
				printErr(h.out, err)
			}
			if quit {
				return nil
			}
		}
	}
}

// schedule returns the timer for the phase g is in and what to do when it
// fires. Phases without a local timer return a nil channel.
func (h *hostConsole) schedule(g *domain.Game) (<-chan time.Time, func(context.Context) error) {
	switch g.Status {
	case domain.StatusCountdown:
		return time.After(h.timing.countdown), func(ctx context.Context) error {
			return h.store.SetGameStatus(ctx, domain.StatusQuestion)
		}
	case domain.StatusQuestion:
		return time.After(questionTime(g) + h.timing.reveal), h.store.ShowLeaderboard
	default:
		return nil, nil
	}
}

func (h *hostConsole) draw(g *domain.Game, v, prev view) {
	switch g.Status {
	case domain.StatusLobby:
		render.Lobby(h.out, g)
	case domain.StatusCountdown:
		if v.phaseChanged(prev) {
			fmt.Fprintf(h.out, "\nQuestion %d starts in %s...\n", g.CurrentQuestionIndex+1, h.timing.countdown)
		}
	case domain.StatusQuestion:
		if v.phaseChanged(prev) {
			render.Question(h.out, g, true)
			return
		}
		fmt.Fprintf(h.out, "%d/%d answered\n", v.answered, v.players)
	case domain.StatusLeaderboard:
		render.Leaderboard(h.out, g, "")
		if g.IsLastQuestion() {
			fmt.Fprintln(h.out, "Type next for the final results.")
		} else {
			fmt.Fprintln(h.out, "Type next for the next question.")
		}
	case domain.StatusFinished:
		render.Podium(h.out, g)
	}
}

// command applies one line of host input. It reports true when the host
// wants to leave.
func (h *hostConsole) command(ctx context.Context, line string) (bool, error) {
	switch strings.ToLower(line) {
	case "":
		return false, nil
	case "start":
		return false, h.store.StartGame(ctx)
	case "skip", "leaderboard":
		return false, h.store.ShowLeaderboard(ctx)
	case "next":
		return false, h.store.NextQuestion(ctx)
	case "end":
		return false, h.store.EndGame(ctx)
	case "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(h.out, hostHelp)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q", line)
	}
}
