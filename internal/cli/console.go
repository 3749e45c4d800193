package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"quizblitz/internal/domain"
	"quizblitz/internal/session"
)

// Pacing of the local phases the client drives itself.
type timing struct {
	countdown time.Duration
	reveal    time.Duration
}

var defaultTiming = timing{
	countdown: 3 * time.Second,
	reveal:    3 * time.Second,
}

// readLines feeds trimmed input lines into the returned channel until r is
// exhausted.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
	}()
	return lines
}

// view identifies what is on screen, so a snapshot that does not change it
// is not redrawn.
type view struct {
	status   domain.Status
	index    int
	players  int
	answered int
}

func viewOf(st session.Snapshot) view {
	g := st.Game
	if g == nil {
		return view{}
	}
	v := view{status: g.Status, index: g.CurrentQuestionIndex, players: len(g.Players)}
	for _, p := range g.Players {
		if p.HasAnswered() {
			v.answered++
		}
	}
	return v
}

// phaseChanged reports whether the game moved to another status or question.
func (v view) phaseChanged(prev view) bool {
	return v.status != prev.status || v.index != prev.index
}

func questionTime(g *domain.Game) time.Duration {
	q, ok := g.CurrentQuestion()
	if !ok || q.TimeLimit <= 0 {
		return domain.DefaultTimeLimit * time.Second
	}
	return time.Duration(q.TimeLimit) * time.Second
}

func printErr(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

// leaveQuietly detaches from the game on the way out. The caller's context
// may already be cancelled, so a short one of our own is used.
func leaveQuietly(store *session.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = store.LeaveGame(ctx)
}
