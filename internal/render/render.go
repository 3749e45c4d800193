package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/skip2/go-qrcode"

	"quizblitz/internal/domain"
)

var optionLabels = [domain.OptionCount]string{"A", "B", "C", "D"}

// Pin prints the join pin and, when joinText is set, a QR code encoding it.
func Pin(w io.Writer, pin, joinText string) error {
	fmt.Fprintf(w, "\n  Game PIN: %s\n\n", spaced(pin))
	if joinText == "" {
		return nil
	}
	qr, err := qrcode.New(joinText, qrcode.Low)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	writeQR(w, qr.Bitmap())
	fmt.Fprintf(w, "  %s\n\n", joinText)
	return nil
}

// writeQR draws two bitmap rows per text line with half blocks.
func writeQR(w io.Writer, bitmap [][]bool) {
	for y := 0; y < len(bitmap); y += 2 {
		var b strings.Builder
		b.WriteString("  ")
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bottom := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteRune(' ')
			}
		}
		fmt.Fprintln(w, b.String())
	}
}

func spaced(pin string) string {
	return strings.Join(strings.Split(pin, ""), " ")
}

// QuizList prints the host's quizzes.
func QuizList(w io.Writer, quizzes []domain.Quiz) {
	if len(quizzes) == 0 {
		fmt.Fprintln(w, "No quizzes yet.")
		return
	}
	for _, q := range quizzes {
		fmt.Fprintf(w, "%s  %-30s %2d question(s)\n", q.ID, q.Title, len(q.Questions))
	}
}

// Quiz prints a quiz with its questions and the correct answers marked.
func Quiz(w io.Writer, quiz domain.Quiz) {
	fmt.Fprintf(w, "%s\n", quiz.Title)
	if quiz.Description != "" {
		fmt.Fprintf(w, "%s\n", quiz.Description)
	}
	for i, q := range quiz.Questions {
		fmt.Fprintf(w, "\n%d. [%s] (%ds)\n", i+1, q.ID, q.TimeLimit)
		questionText(w, q)
		for j, opt := range q.Options {
			marker := " "
			if j == q.CorrectIndex {
				marker = "*"
			}
			fmt.Fprintf(w, "   %s %s) %s\n", marker, label(j), opt)
		}
	}
}

// Lobby prints the waiting room.
func Lobby(w io.Writer, game *domain.Game) {
	fmt.Fprintf(w, "Lobby %s: %d player(s)\n", game.Pin, len(game.Players))
	for _, p := range game.Players {
		fmt.Fprintf(w, "  %s %s\n", domain.Avatar(p.AvatarID), p.Nickname)
	}
}

// Question prints the current question. Hosts also see how many players
// have answered.
func Question(w io.Writer, game *domain.Game, host bool) {
	q, ok := game.CurrentQuestion()
	if !ok {
		fmt.Fprintln(w, "Waiting for the next question...")
		return
	}
	total := 0
	if game.Quiz != nil {
		total = len(game.Quiz.Questions)
	}
	fmt.Fprintf(w, "\nQuestion %d/%d  (%ds)\n", game.CurrentQuestionIndex+1, total, q.TimeLimit)
	questionText(w, q)
	for i, opt := range q.Options {
		fmt.Fprintf(w, "  %s) %s\n", label(i), opt)
	}
	if host {
		answered := 0
		for _, p := range game.Players {
			if p.HasAnswered() {
				answered++
			}
		}
		fmt.Fprintf(w, "%d/%d answered\n", answered, len(game.Players))
	}
}

func questionText(w io.Writer, q domain.Question) {
	if !q.IsMultiline() {
		fmt.Fprintf(w, "  %s\n", q.Text)
		return
	}
	for _, line := range strings.Split(q.Text, "\n") {
		fmt.Fprintf(w, "  │ %s\n", line)
	}
}

// Ranked returns the players ordered by score, highest first. Ties keep
// nickname order so the output is stable.
func Ranked(players []domain.Player) []domain.Player {
	out := append([]domain.Player(nil), players...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Nickname < out[j].Nickname
	})
	return out
}

// Leaderboard prints the standings and, after a question, the right answer.
func Leaderboard(w io.Writer, game *domain.Game, highlightID string) {
	if q, ok := game.CurrentQuestion(); ok && q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) {
		fmt.Fprintf(w, "\nCorrect answer: %s) %s\n", label(q.CorrectIndex), q.Options[q.CorrectIndex])
	}
	fmt.Fprintln(w, "\nLeaderboard")
	for i, p := range Ranked(game.Players) {
		marker := " "
		if p.ID == highlightID {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %2d. %s %-15s %6d\n", marker, i+1, domain.Avatar(p.AvatarID), p.Nickname, p.Score)
	}
}

var medals = [...]string{"🥇", "🥈", "🥉"}

// Podium prints the final top three.
func Podium(w io.Writer, game *domain.Game) {
	fmt.Fprintln(w, "\nFinal results")
	ranked := Ranked(game.Players)
	if len(ranked) == 0 {
		fmt.Fprintln(w, "  Nobody played.")
		return
	}
	for i, p := range ranked {
		if i >= len(medals) {
			break
		}
		fmt.Fprintf(w, "  %s %s %s  %d\n", medals[i], domain.Avatar(p.AvatarID), p.Nickname, p.Score)
	}
}

func label(i int) string {
	if i >= 0 && i < len(optionLabels) {
		return optionLabels[i]
	}
	return "?"
}

// ParseOption turns "a", "B" or "2" (1-based) into an option index.
func ParseOption(s string) (int, bool) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) != 1 {
		return 0, false
	}
	for i, l := range optionLabels {
		if s == l {
			return i, true
		}
	}
	if s[0] >= '1' && s[0] < '1'+domain.OptionCount {
		return int(s[0] - '1'), true
	}
	return 0, false
}
