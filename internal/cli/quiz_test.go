package cli

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quizblitz/internal/domain"
	"quizblitz/internal/infra/memory"
	"quizblitz/internal/preview"
	transport "quizblitz/internal/transport/http"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	service := preview.NewService(memory.NewQuizRepository(), memory.NewGameStore(), memory.NewPinRegistry())
	server := httptest.NewServer(transport.NewRouter(service, preview.NewHub(), zap.NewNop()))
	t.Cleanup(server.Close)
	return server
}

func socketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

// cliRunner runs the root command against server with a file identity kept
// in a temp dir, so every invocation acts as the same host.
type cliRunner struct {
	t    *testing.T
	base []string
}

func newCLIRunner(t *testing.T, server *httptest.Server) *cliRunner {
	dir := t.TempDir()
	t.Setenv("QUIZBLITZ_IDENTITY_BACKEND", "file")
	t.Setenv("QUIZBLITZ_IDENTITY_PATH", filepath.Join(dir, "identity.yaml"))
	return &cliRunner{t: t, base: []string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--api-url", server.URL + "/api",
		"--socket-url", socketURL(server),
		"--log-level", "error",
	}}
}

func (r *cliRunner) run(args ...string) (string, error) {
	r.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append(append([]string{}, r.base...), args...))
	err := cmd.Execute()
	return out.String(), err
}

func (r *cliRunner) mustRun(args ...string) string {
	r.t.Helper()
	out, err := r.run(args...)
	require.NoError(r.t, err, out)
	return out
}

func TestQuizCommands(t *testing.T) {
	cli := newCLIRunner(t, newBackend(t))

	out := cli.mustRun("quiz", "list")
	assert.Contains(t, out, "No quizzes yet.")

	out = cli.mustRun("quiz", "create", "--title", "Geo", "--description", "Capitals")
	assert.Contains(t, out, "Created quiz Geo")

	out = cli.mustRun("quiz", "add-question", "Geo",
		"--text", "Capital of Italy?",
		"--option", "Paris", "--option", "Rome", "--option", "Oslo", "--option", "Bern",
		"--correct", "B", "--time", "20")
	assert.Contains(t, out, "Geo now has 1 question(s)")

	out = cli.mustRun("quiz", "show", "geo")
	assert.Contains(t, out, "Capital of Italy?")
	assert.Contains(t, out, "* B) Rome")
	assert.Contains(t, out, "(20s)")

	out = cli.mustRun("quiz", "list")
	assert.Contains(t, out, "Geo")
	assert.Contains(t, out, "1 question(s)")

	out = cli.mustRun("quiz", "delete", "Geo")
	assert.Contains(t, out, "Deleted Geo")
	out = cli.mustRun("quiz", "list")
	assert.NotContains(t, out, "Geo")
}

func TestQuizImportCommand(t *testing.T) {
	cli := newCLIRunner(t, newBackend(t))

	path := filepath.Join(t.TempDir(), "capitals.txt")
	src := "Title: Capitals\n\nCapital of France?\nA) Paris *\nB) Rome\nC) Oslo\nD) Bern\n\nCapital of Norway?\nA) Paris\nB) Rome\nC) Oslo *\nD) Bern\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	out := cli.mustRun("quiz", "import", "--dry-run", path)
	assert.Contains(t, out, "Capitals: 2 question(s) parsed")
	assert.Contains(t, cli.mustRun("quiz", "list"), "No quizzes yet.")

	out = cli.mustRun("quiz", "import", path)
	assert.Contains(t, out, "Imported Capitals")
	assert.Contains(t, out, "with 2 question(s)")

	out = cli.mustRun("quiz", "show", "Capitals")
	assert.Contains(t, out, "* C) Oslo")
}

func TestQuizCommandErrors(t *testing.T) {
	cli := newCLIRunner(t, newBackend(t))

	_, err := cli.run("quiz", "show", "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = cli.run("quiz", "create")
	require.Error(t, err)

	cli.mustRun("quiz", "create", "--title", "Geo")
	_, err = cli.run("quiz", "add-question", "Geo", "--text", "Q?",
		"--option", "a", "--option", "b", "--option", "c", "--option", "d", "--correct", "E")
	require.ErrorContains(t, err, "--correct")

	_, err = cli.run("quiz", "add-question", "Geo", "--text", "Q?", "--option", "a", "--option", "b")
	require.Error(t, err, "two options must be rejected by the backend")

	_, err = cli.run("join", "12ab", "--nickname", "Ava")
	require.ErrorContains(t, err, "pin must be 6 digits")

	_, err = cli.run("join", "123456")
	require.ErrorContains(t, err, "--nickname")
}

func TestFindQuizPrefersIDOverTitle(t *testing.T) {
	quizzes := []domain.Quiz{
		{ID: "q1", Title: "q2"},
		{ID: "q2", Title: "Other"},
	}
	got, ok := findQuiz(quizzes, "q2")
	require.True(t, ok)
	assert.Equal(t, "Other", got.Title)

	got, ok = findQuiz(quizzes, "OTHER")
	require.True(t, ok)
	assert.Equal(t, "q2", got.ID)

	_, ok = findQuiz(quizzes, "missing")
	assert.False(t, ok)
}

func TestValidPin(t *testing.T) {
	assert.True(t, validPin("123456"))
	assert.False(t, validPin("12345"))
	assert.False(t, validPin("12345a"))
	assert.False(t, validPin(""))
}
