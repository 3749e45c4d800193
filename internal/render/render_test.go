package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizblitz/internal/domain"
)

func sampleGame() *domain.Game {
	answered := 1
	return &domain.Game{
		Pin: "123456",
		Quiz: &domain.Quiz{Questions: []domain.Question{
			{Text: "Capital of France?", Options: []string{"Paris", "Rome", "Oslo", "Bern"}, CorrectIndex: 0, TimeLimit: 15},
			{Text: "What prints?\nfmt.Println(1)", Options: []string{"0", "1", "2", "3"}, CorrectIndex: 1, TimeLimit: 20},
		}},
		Status: domain.StatusQuestion,
		Players: []domain.Player{
			{ID: "b", Nickname: "Ben", AvatarID: 1, Score: 500},
			{ID: "a", Nickname: "Ava", AvatarID: 3, Score: 900, CurrentAnswer: &answered},
			{ID: "c", Nickname: "Cy", AvatarID: 2, Score: 500},
		},
	}
}

func TestPinIncludesQRCode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Pin(&buf, "123456", "quizblitz join 123456"))
	out := buf.String()
	assert.Contains(t, out, "1 2 3 4 5 6", "pin is spaced out")
	assert.Regexp(t, "[█▀▄]", out, "QR blocks in output")
}

func TestRankedOrdersByScoreThenName(t *testing.T) {
	ranked := Ranked(sampleGame().Players)
	got := []string{ranked[0].Nickname, ranked[1].Nickname, ranked[2].Nickname}
	assert.Equal(t, []string{"Ava", "Ben", "Cy"}, got)
}

func TestQuestionRendersCodeBlock(t *testing.T) {
	game := sampleGame()
	game.CurrentQuestionIndex = 1

	var buf bytes.Buffer
	Question(&buf, game, true)
	out := buf.String()
	assert.Contains(t, out, "Question 2/2")
	assert.Contains(t, out, "│ fmt.Println(1)", "multiline text renders as a code block")
	assert.Contains(t, out, "1/3 answered", "host sees the answered count")
}

func TestLeaderboardShowsCorrectAnswer(t *testing.T) {
	var buf bytes.Buffer
	Leaderboard(&buf, sampleGame(), "a")
	out := buf.String()
	assert.Contains(t, out, "Correct answer: A) Paris")
	assert.Contains(t, out, ">  1.", "own row is highlighted")
}

func TestPodiumTopThree(t *testing.T) {
	var buf bytes.Buffer
	Podium(&buf, sampleGame())
	assert.Equal(t, 5, strings.Count(buf.String(), "\n"), "header and three rows:\n%s", buf.String())
}

func TestParseOption(t *testing.T) {
	cases := map[string]int{"a": 0, "B": 1, " c ": 2, "4": 3}
	for in, want := range cases {
		got, ok := ParseOption(in)
		require.True(t, ok, "%q should parse", in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "e", "5", "ab"} {
		_, ok := ParseOption(bad)
		assert.False(t, ok, "%q should not parse", bad)
	}
}
