package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/moodang/internal/commands"
	"github.com/nextlevelbuilder/moodang/internal/job"
	"github.com/nextlevelbuilder/moodang/internal/protocol"
	"github.com/nextlevelbuilder/moodang/internal/shellenv"
	"github.com/nextlevelbuilder/moodang/internal/vfs"
)

// newTestSession builds a Session with no live websocket connection, since
// handle() never touches s.conn; Serve() is not exercised by these tests.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	registry := commands.NewRegistry()
	opts := shellenv.DefaultOptions()
	env := shellenv.New(vfs.NewSeeded(), opts)
	return &Session{
		ID:       "test-session",
		env:      env,
		registry: registry,
		jobs:     job.NewController(env),
	}
}

func TestHandleExecuteReturnsCommandResult(t *testing.T) {
	s := newTestSession(t)
	resp := s.handle(protocol.Request{ID: "1", Kind: protocol.RequestExecute, Command: "echo hi"})
	require.Equal(t, "command-result", resp.Kind)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "hi\n", resp.Result.Stdout)
}

func TestHandleGetEnvironment(t *testing.T) {
	s := newTestSession(t)
	resp := s.handle(protocol.Request{ID: "2", Kind: protocol.RequestGetEnvironment})
	assert.Equal(t, "environment", resp.Kind)
	assert.Equal(t, "/home/user", resp.Dir)
}

func TestHandleSetEnvironment(t *testing.T) {
	s := newTestSession(t)
	resp := s.handle(protocol.Request{ID: "3", Kind: protocol.RequestSetEnvironment, Key: "FOO", Value: "bar"})
	assert.Equal(t, "environment-set", resp.Kind)
	assert.Equal(t, "bar", s.env.Snapshot().Env["FOO"])
}

func TestHandleChangeDirectorySuccessAndFailure(t *testing.T) {
	s := newTestSession(t)
	resp := s.handle(protocol.Request{ID: "4", Kind: protocol.RequestChangeDirectory, Path: "/tmp"})
	assert.Equal(t, "directory-changed", resp.Kind)
	assert.Equal(t, "/tmp", resp.Dir)

	resp = s.handle(protocol.Request{ID: "5", Kind: protocol.RequestChangeDirectory, Path: "/nope"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrDirectoryChangeFailed, resp.Error.Code)
}

func TestHandleKillProcessNotFound(t *testing.T) {
	s := newTestSession(t)
	resp := s.handle(protocol.Request{ID: "6", Kind: protocol.RequestKillProcess, PID: 999})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrProcessNotFound, resp.Error.Code)
}

func TestHandleListProcesses(t *testing.T) {
	s := newTestSession(t)
	s.handle(protocol.Request{ID: "7", Kind: protocol.RequestExecute, Command: "echo hi"})
	resp := s.handle(protocol.Request{ID: "8", Kind: protocol.RequestListProcesses})
	assert.Equal(t, "process-list", resp.Kind)
}

func TestHandleUnknownKind(t *testing.T) {
	s := newTestSession(t)
	resp := s.handle(protocol.Request{ID: "9", Kind: "bogus"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrUnknownRequest, resp.Error.Code)
}
