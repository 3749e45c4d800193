package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"quizblitz/internal/domain"
	"quizblitz/internal/render"
	"quizblitz/internal/session"
)

func newJoinCmd(flags *globalFlags) *cobra.Command {
	var (
		nickname string
		avatarID int
	)
	cmd := &cobra.Command{
		Use:   "join <pin> [nickname]",
		Short: "Join a game as a player",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin := strings.TrimSpace(args[0])
			if len(args) == 2 {
				nickname = args[1]
			}
			if !validPin(pin) {
				return fmt.Errorf("pin must be %d digits", domain.PinLength)
			}
			nickname = strings.TrimSpace(nickname)
			if nickname == "" {
				return errors.New("--nickname is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := flags.openClient(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			p := &playerConsole{store: env.store, out: cmd.OutOrStdout()}
			return p.run(ctx, pin, nickname, avatarID, readLines(cmd.InOrStdin()))
		},
	}
	cmd.Flags().StringVarP(&nickname, "nickname", "n", "", fmt.Sprintf("nickname shown to others (max %d characters)", domain.MaxNicknameLength))
	cmd.Flags().IntVar(&avatarID, "avatar", 0, fmt.Sprintf("avatar number 0-%d", len(domain.Avatars)-1))
	return cmd
}

func validPin(pin string) bool {
	if len(pin) != domain.PinLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// playerConsole plays one game from a player's terminal.
type playerConsole struct {
	store *session.Store
	out   io.Writer
}

func (p *playerConsole) run(ctx context.Context, pin, nickname string, avatarID int, lines <-chan string) error {
	if !p.store.JoinGame(ctx, pin, nickname, avatarID) {
		return fmt.Errorf("could not join game %s: %s", pin, p.store.Snapshot().Err)
	}
	defer leaveQuietly(p.store)

	st := p.store.Snapshot()
	fmt.Fprintf(p.out, "Joined as %s %s. Waiting for the host to start.\n", domain.Avatar(st.Player.AvatarID), st.Player.Nickname)

	updates, cancel := p.store.Subscribe()
	defer cancel()

	var (
		shown view
		// answered holds the question indexes this player already answered.
		answered = make(map[int]bool)
		latest   session.Snapshot
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
			latest = st
			v := viewOf(st)
			if v == shown {
				continue
			}
			changed := v.phaseChanged(shown)
			shown = v
			if changed || st.Game.Status == domain.StatusLobby {
				p.draw(st)
			}
			if st.Game.Status == domain.StatusFinished {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
				return nil
			}
			if err := p.answer(ctx, latest, answered, line); err != nil {
				printErr(p.out, err)
			}
		}
	}
}

func (p *playerConsole) draw(st session.Snapshot) {
	g := st.Game
	switch g.Status {
	case domain.StatusLobby:
		render.Lobby(p.out, g)
	case domain.StatusCountdown:
		fmt.Fprintln(p.out, "\nGet ready...")
	case domain.StatusQuestion:
		render.Question(p.out, g, false)
		fmt.Fprint(p.out, "Your answer: ")
	case domain.StatusLeaderboard:
		render.Leaderboard(p.out, g, st.Player.ID)
	case domain.StatusFinished:
		render.Podium(p.out, g)
		for i, pl := range render.Ranked(g.Players) {
			if pl.ID == st.Player.ID {
				fmt.Fprintf(p.out, "You finished #%d with %d points.\n", i+1, pl.Score)
			}
		}
	}
}

// answer submits line as the answer to the running question. Each question
// takes one answer; the choice is locked in before the request goes out.
func (p *playerConsole) answer(ctx context.Context, st session.Snapshot, answered map[int]bool, line string) error {
	if line == "" {
		return nil
	}
	if st.Game == nil || st.Game.Status != domain.StatusQuestion {
		return errors.New("no question is running")
	}
	idx, ok := render.ParseOption(line)
	if !ok {
		return fmt.Errorf("answer with A-D or 1-%d", domain.OptionCount)
	}
	qi := st.Game.CurrentQuestionIndex
	if answered[qi] {
		return errors.New("already answered")
	}
	answered[qi] = true
	if err := p.store.SubmitAnswer(ctx, idx); err != nil {
		return err
	}
	fmt.Fprintln(p.out, "Answer locked in.")
	return nil
}
