package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/moodang/internal/shellenv"
	"github.com/nextlevelbuilder/moodang/internal/vfs"
)

func newTestController(t *testing.T) (*shellenv.Environment, *Controller) {
	t.Helper()
	env := shellenv.New(vfs.NewSeeded(), shellenv.DefaultOptions())
	return env, NewController(env)
}

func TestRegisterAndGet(t *testing.T) {
	env, c := newTestController(t)
	ctx := env.CreateExecutionContext("", []string{"echo", "hi"})
	require.NoError(t, env.StartProcess("echo", ctx))
	require.NoError(t, c.Register(ctx.PID, "echo", false))

	j, ok := c.Get(ctx.PID)
	require.True(t, ok)
	assert.Equal(t, shellenv.StatusRunning, j.Status)
	assert.False(t, j.Background)
}

func TestRegisterRespectsMaxProcesses(t *testing.T) {
	opts := shellenv.DefaultOptions()
	opts.MaxProcesses = 1
	env := shellenv.New(vfs.NewSeeded(), opts)
	c := NewController(env)

	ctx1 := env.CreateExecutionContext("", nil)
	require.NoError(t, c.Register(ctx1.PID, "echo", true))

	ctx2 := env.CreateExecutionContext("", nil)
	err := c.Register(ctx2.PID, "echo", true)
	require.ErrorIs(t, err, ErrJobLimitReached)
}

func TestTransitionRemovesCompletedJob(t *testing.T) {
	env, c := newTestController(t)
	ctx := env.CreateExecutionContext("", nil)
	require.NoError(t, env.StartProcess("sleep", ctx))
	require.NoError(t, c.Register(ctx.PID, "sleep", true))

	var seen Job
	unsub := c.OnNotify(func(j Job) { seen = j })
	defer unsub()

	env.CompleteProcess(ctx.PID, 0)
	assert.Equal(t, shellenv.StatusCompleted, seen.Status)
	assert.True(t, seen.Background)

	_, ok := c.Get(ctx.PID)
	assert.False(t, ok)
}

func TestTransitionIgnoresUnregisteredPID(t *testing.T) {
	env, c := newTestController(t)
	ctx := env.CreateExecutionContext("", nil)
	require.NoError(t, env.StartProcess("echo", ctx))

	var called bool
	unsub := c.OnNotify(func(Job) { called = true })
	defer unsub()

	env.CompleteProcess(ctx.PID, 0)
	assert.False(t, called)
}

func TestListReturnsAllTrackedJobs(t *testing.T) {
	env, c := newTestController(t)
	ctx1 := env.CreateExecutionContext("", nil)
	ctx2 := env.CreateExecutionContext("", nil)
	require.NoError(t, c.Register(ctx1.PID, "a", false))
	require.NoError(t, c.Register(ctx2.PID, "b", true))

	list := c.List()
	assert.Len(t, list, 2)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	env, c := newTestController(t)
	ctx := env.CreateExecutionContext("", nil)
	require.NoError(t, env.StartProcess("echo", ctx))
	require.NoError(t, c.Register(ctx.PID, "echo", false))

	var calls int
	unsub := c.OnNotify(func(Job) { calls++ })
	unsub()

	env.CompleteProcess(ctx.PID, 0)
	assert.Equal(t, 0, calls)
}
