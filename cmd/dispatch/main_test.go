package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-dispatch/config"
	"github.com/sweetpotato0/ai-dispatch/contrib/chunking/markdown"
	"github.com/sweetpotato0/ai-dispatch/rag/chunking"
	"github.com/sweetpotato0/ai-dispatch/router"
	"github.com/sweetpotato0/ai-dispatch/runtime"
)

type echoExecutor struct {
	requests []runtime.Request
	err      error
}

func (e *echoExecutor) Execute(_ context.Context, req *runtime.Request) (*runtime.TurnResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.requests = append(e.requests, *req)
	return &runtime.TurnResult{SessionID: req.SessionID, Output: "Echo: " + req.Input}, nil
}

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestChatLoop(t *testing.T) {
	exec := &echoExecutor{}
	var out bytes.Buffer

	err := chatLoop(context.Background(), exec, "s1", strings.NewReader("hello\n\n  billing  \nquit\nignored\n"), &out)
	require.NoError(t, err)

	require.Len(t, exec.requests, 2)
	assert.Equal(t, runtime.Request{SessionID: "s1", Input: "hello"}, exec.requests[0])
	assert.Equal(t, "billing", exec.requests[1].Input)
	assert.Contains(t, out.String(), "Echo: hello\n")
	assert.True(t, strings.HasSuffix(out.String(), goodbye+"\n"))
	assert.NotContains(t, out.String(), "ignored")
}

func TestChatLoopStopsAtEOF(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), &echoExecutor{}, "s", strings.NewReader("one"), &out))
	assert.Contains(t, out.String(), "Echo: one")
	assert.Contains(t, out.String(), goodbye)
}

func TestChatLoopReturnsExecutorErrors(t *testing.T) {
	boom := errors.New("boom")
	err := chatLoop(context.Background(), &echoExecutor{err: boom}, "s", strings.NewReader("hi\n"), &bytes.Buffer{})
	assert.ErrorIs(t, err, boom)
}

func TestPlansCommand(t *testing.T) {
	out, err := runCmd(t, "", "plans")
	require.NoError(t, err)
	assert.Contains(t, out, "CODE")
	for _, code := range []string{"starter", "growth", "scale"} {
		assert.Contains(t, out, code)
	}
}

func TestAskWithoutBackendsRefuses(t *testing.T) {
	out, err := runCmd(t, "", "ask", "how", "do", "I", "get", "a", "refund")
	require.NoError(t, err)
	assert.Equal(t, router.RefusalMessage+"\n", out)
}

func TestChatSessionNeverExpires(t *testing.T) {
	a, err := openApp(context.Background(), &globalFlags{}, keepSessionsAlive)
	require.NoError(t, err)
	defer closeApp(a)
	assert.Negative(t, a.rt.Config().Session.TTL)

	b, err := openApp(context.Background(), &globalFlags{})
	require.NoError(t, err)
	defer closeApp(b)
	assert.Equal(t, config.DefaultSessionTTL, b.rt.Config().Session.TTL)
}

func TestHistoryNeedsArchive(t *testing.T) {
	_, err := runCmd(t, "", "history")
	assert.Error(t, err)
}

func TestIndexEmptyTree(t *testing.T) {
	dir := t.TempDir()
	out, err := runCmd(t, "", "index", dir, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found under "+dir)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("router:\n  threshold: 0.5\n"), 0o600))

	cfg, err := loadConfig(&globalFlags{configPath: path})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, cfg.Router.Threshold, 1e-9)

	_, err = loadConfig(&globalFlags{configPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestNewChunker(t *testing.T) {
	c, err := newChunker("", "")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = newChunker("simple", "")
	require.NoError(t, err)
	assert.IsType(t, &chunking.SimpleChunker{}, c)

	c, err = newChunker("Markdown", "")
	require.NoError(t, err)
	assert.IsType(t, &markdown.Chunker{}, c)

	_, err = newChunker("sentences", "")
	assert.Error(t, err)
}
