// Package job tracks background/foreground jobs, mirroring process-table
// transitions from shellenv.Environment and publishing them to any
// subscriber (the worker dispatcher, typically) via an explicit listener
// list rather than a dynamic callback table.
package job

import (
	"errors"
	"sync"

	"github.com/nextlevelbuilder/moodang/internal/shellenv"
)

// ErrJobLimitReached is returned by Register once the job table has as many
// entries as the environment's max-processes option allows.
var ErrJobLimitReached = errors.New("job limit reached")

// Job mirrors a ProcessInfo with a background flag, the shape the job
// controller exposes to callers.
type Job struct {
	shellenv.ProcessInfo
	Background bool
}

// Listener is notified whenever a job's status changes.
type Listener func(Job)

// Controller is not a scheduler: the pipeline body still runs synchronously
// per request on the owning goroutine. A job's "background" flag is
// recorded and passed to listeners; the dispatcher runs every pipeline to
// completion before replying, whatever the flag says.
type Controller struct {
	mu   sync.Mutex
	jobs map[int]*Job
	env  *shellenv.Environment

	listeners []Listener

	unsubscribeEnv func()
}

// NewController creates a Controller that mirrors env's process-table
// transitions.
func NewController(env *shellenv.Environment) *Controller {
	c := &Controller{
		jobs: make(map[int]*Job),
		env:  env,
	}
	c.unsubscribeEnv = env.OnTransition(c.onTransition)
	return c
}

// Close unsubscribes from the environment's transition notifications.
func (c *Controller) Close() {
	if c.unsubscribeEnv != nil {
		c.unsubscribeEnv()
	}
}

// Register creates a job entry for pid, enforcing the same throttle as
// max_processes so the job table cannot outgrow the process table it
// mirrors.
func (c *Controller) Register(pid int, command string, background bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.jobs) >= c.env.Options().MaxProcesses {
		return ErrJobLimitReached
	}
	c.jobs[pid] = &Job{
		ProcessInfo: shellenv.ProcessInfo{ID: pid, Command: command, Status: shellenv.StatusRunning},
		Background:  background,
	}
	return nil
}

func (c *Controller) onTransition(info shellenv.ProcessInfo) {
	c.mu.Lock()
	j, ok := c.jobs[info.ID]
	if !ok {
		c.mu.Unlock()
		return
	}
	j.ProcessInfo = info
	snapshot := *j
	if info.Status != shellenv.StatusRunning {
		delete(c.jobs, info.ID)
	}
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		if l != nil {
			l(snapshot)
		}
	}
}

// OnNotify subscribes to job status changes, returning an unsubscribe
// handle. Errors from one listener never block or affect others — this
// package never calls listeners in a way that can panic the caller, but a
// panicking listener is the caller's own bug, not swallowed here.
func (c *Controller) OnNotify(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	idx := len(c.listeners) - 1
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.listeners) {
			c.listeners[idx] = nil
		}
	}
}

// Get looks up a job by PID.
func (c *Controller) Get(pid int) (Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[pid]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns every currently tracked job.
func (c *Controller) List() []Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Job, 0, len(c.jobs))
	for _, j := range c.jobs {
		out = append(out, *j)
	}
	return out
}
