package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ds-tutor/internal/chatlog"
	"ds-tutor/internal/llm"
	"ds-tutor/internal/session"
)

type scriptedInput struct {
	lines []string
}

func (s *scriptedInput) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	return l, nil
}

type fakeLLM struct {
	resp llm.Response
	err  error
}

func (f fakeLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	return f.resp, f.err
}

func run(t *testing.T, client llm.Client, delay time.Duration, lines ...string) (string, *chatlog.FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := chatlog.NewFileStore(filepath.Join(dir, "chat_logs"))
	require.NoError(t, err)
	return runWith(t, store, client, delay, dir, lines...), store, dir
}

func runWith(t *testing.T, store chatlog.Store, client llm.Client, delay time.Duration, dir string, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	r := New(session.New(store, client, nil, nil), &scriptedInput{lines: lines}, &out, Options{TypingDelay: delay, ExportDir: dir})
	require.NoError(t, r.Run(context.Background()))
	return out.String()
}

func TestRun_RequiresUsername(t *testing.T) {
	out, _, _ := run(t, fakeLLM{}, 0, "", "  ", "alice", "/quit")
	require.Equal(t, 2, strings.Count(out, "Please provide a username."))
	require.Contains(t, out, "Hello, alice! "+session.NoticeNewSession)
	require.Contains(t, out, "Tip: Ask me anything about data science!")
}

func TestRun_AskPersistsTurn(t *testing.T) {
	reply := "- Model fits noise\n- Poor generalisation"
	out, store, _ := run(t, fakeLLM{resp: llm.Response{Content: reply}}, time.Millisecond, "alice", "What is overfitting?")
	require.Contains(t, out, reply)
	require.Equal(t, []chatlog.Turn{{User: "What is overfitting?", AI: reply}}, store.Load("alice"))
}

func TestRun_ModelErrorIsReported(t *testing.T) {
	out, store, _ := run(t, fakeLLM{err: errors.New("network unreachable")}, 0, "bob", "What is PCA?", "/quit")
	require.Contains(t, out, "Error: network unreachable")
	require.Empty(t, store.Load("bob"))
}

func TestRun_ResumesHistoryAndCommands(t *testing.T) {
	dir := t.TempDir()
	store, err := chatlog.NewFileStore(filepath.Join(dir, "chat_logs"))
	require.NoError(t, err)
	require.NoError(t, store.Save("carol", []chatlog.Turn{{User: "q1", AI: "a1"}}))

	custom := filepath.Join(dir, "custom.txt")
	out := runWith(t, store, fakeLLM{}, 0, dir,
		"carol", "/history", "/export", "/export "+custom, "/clear", "/clear", "/export", "/bogus", "/quit")

	require.Contains(t, out, session.NoticeLoaded)
	require.Contains(t, out, "You: q1")
	require.Contains(t, out, "a1")

	data, err := os.ReadFile(filepath.Join(dir, "carol_chat_history.txt"))
	require.NoError(t, err)
	require.Equal(t, "User: q1\nAI: a1\n", string(data))
	data, err = os.ReadFile(custom)
	require.NoError(t, err)
	require.Equal(t, "User: q1\nAI: a1\n", string(data))

	require.Contains(t, out, session.NoticeCleared)
	require.Contains(t, out, session.NoticeNothingToClear)
	require.Contains(t, out, session.NoticeNoHistory)
	require.Contains(t, out, "Unknown command: /bogus")
	require.Empty(t, store.Load("carol"))
}

func TestNewMarkdownRenderer(t *testing.T) {
	render := NewMarkdownRenderer(80)
	require.Contains(t, render("**bold** text"), "bold")
}

func TestRun_ExportStaysInsideExportDir(t *testing.T) {
	root := t.TempDir()
	exportDir := filepath.Join(root, "exports")
	require.NoError(t, os.MkdirAll(exportDir, 0o755))
	store, err := chatlog.NewFileStore(filepath.Join(root, "chat_logs"))
	require.NoError(t, err)

	for _, id := range []string{"../escape", "a/b"} {
		require.NoError(t, store.Save(id, []chatlog.Turn{{User: "q", AI: "a"}}))
		out := runWith(t, store, fakeLLM{}, 0, exportDir, id, "/export", "/quit")
		require.NotContains(t, out, "Error:", id)

		path := filepath.Join(exportDir, chatlog.ExportFileName(id))
		require.Contains(t, out, "Chat history saved to "+path, id)
		data, err := os.ReadFile(path)
		require.NoError(t, err, id)
		require.Equal(t, "User: q\nAI: a\n", string(data))
	}

	_, err = os.Stat(filepath.Join(root, "escape_chat_history.txt"))
	require.True(t, os.IsNotExist(err), "export must not leave the export dir")
}

func TestRun_PacedReplyIsRendered(t *testing.T) {
	dir := t.TempDir()
	store, err := chatlog.NewFileStore(filepath.Join(dir, "chat_logs"))
	require.NoError(t, err)

	var out bytes.Buffer
	ctrl := session.New(store, fakeLLM{resp: llm.Response{Content: "**bias** and variance"}}, nil, nil)
	r := New(ctrl, &scriptedInput{lines: []string{"alice", "q", "/quit"}}, &out, Options{
		Renderer:    func(s string) string { return strings.ReplaceAll(strings.ToUpper(s), "**", "") },
		TypingDelay: time.Millisecond,
	})
	require.NoError(t, r.Run(context.Background()))

	require.Contains(t, out.String(), "BIAS AND VARIANCE")
	require.NotContains(t, out.String(), "**bias**")
	// the raw reply is what gets persisted
	require.Equal(t, "**bias** and variance", store.Load("alice")[0].AI)
}
