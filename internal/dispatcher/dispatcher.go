// Package dispatcher implements the worker dispatcher: a single-threaded,
// per-connection message loop that parses and runs pipelines, reports
// environment state, and manages the process table over a websocket.
package dispatcher

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/moodang/internal/commands"
	"github.com/nextlevelbuilder/moodang/internal/job"
	"github.com/nextlevelbuilder/moodang/internal/parser"
	"github.com/nextlevelbuilder/moodang/internal/pipeline"
	"github.com/nextlevelbuilder/moodang/internal/protocol"
	"github.com/nextlevelbuilder/moodang/internal/shellenv"
	"github.com/nextlevelbuilder/moodang/internal/vfs"
)

// Session owns one connection's Environment, registry, and job controller,
// and processes requests one at a time on its own goroutine — no locking
// is needed inside a Session because nothing else touches its state.
type Session struct {
	ID       string
	conn     *websocket.Conn
	env      *shellenv.Environment
	registry *commands.Registry
	jobs     *job.Controller
	logger   *slog.Logger
}

// NewSession builds a Session with a fresh Environment and job controller
// over conn, using opts for process-table limits.
func NewSession(conn *websocket.Conn, registry *commands.Registry, opts shellenv.Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	env := shellenv.New(vfs.NewSeeded(), opts)
	return &Session{
		ID:       id,
		conn:     conn,
		env:      env,
		registry: registry,
		jobs:     job.NewController(env),
		logger:   logger.With("session", id),
	}
}

// Serve runs the read/handle/reply loop until the connection closes or
// errors. The loop processes exactly one request to completion before
// reading the next, matching the single-threaded dispatcher contract.
func (s *Session) Serve() error {
	defer s.jobs.Close()
	for {
		var req protocol.Request
		if err := s.conn.ReadJSON(&req); err != nil {
			return err
		}
		resp := s.handle(req)
		if err := s.conn.WriteJSON(resp); err != nil {
			return err
		}
	}
}

func (s *Session) handle(req protocol.Request) (resp protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = protocol.NewError(req.ID, protocol.ErrRequestFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	switch req.Kind {
	case protocol.RequestExecute:
		return s.handleExecute(req)
	case protocol.RequestGetEnvironment:
		return s.handleGetEnvironment(req)
	case protocol.RequestSetEnvironment:
		return s.handleSetEnvironment(req)
	case protocol.RequestChangeDirectory:
		return s.handleChangeDirectory(req)
	case protocol.RequestKillProcess:
		return s.handleKillProcess(req)
	case protocol.RequestListProcesses:
		return s.handleListProcesses(req)
	default:
		return protocol.NewError(req.ID, protocol.ErrUnknownRequest, "unknown request kind: "+string(req.Kind))
	}
}

func (s *Session) handleExecute(req protocol.Request) protocol.Response {
	ctx := s.env.CreateExecutionContext(req.Stdin, nil)
	p := parser.ParsePipeline(req.Command, s.env.EnvMap())

	if err := s.env.StartProcess(req.Command, ctx); err != nil {
		return protocol.NewError(req.ID, protocol.ErrRequestFailed, err.Error())
	}
	_ = s.jobs.Register(ctx.PID, req.Command, p.Background)
	s.env.PushHistory(req.Command)

	res := pipeline.Run(s.env, s.registry, p, ctx)
	if res.ExitCode == 0 {
		s.env.CompleteProcess(ctx.PID, 0)
	} else {
		s.env.CompleteProcess(ctx.PID, res.ExitCode)
	}

	result := commands.CommandResult{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}
	return protocol.Response{ID: req.ID, Kind: "command-result", Result: &result, PID: ctx.PID}
}

func (s *Session) handleGetEnvironment(req protocol.Request) protocol.Response {
	snap := s.env.Snapshot()
	return protocol.Response{ID: req.ID, Kind: "environment", Env: snap.Env, Dir: snap.WorkingDirectory}
}

func (s *Session) handleSetEnvironment(req protocol.Request) protocol.Response {
	if err := s.env.SetEnvironmentVariable(req.Key, req.Value); err != nil {
		return protocol.NewError(req.ID, protocol.ErrRequestFailed, err.Error())
	}
	return protocol.Response{ID: req.ID, Kind: "environment-set", Key: req.Key, Value: req.Value}
}

func (s *Session) handleChangeDirectory(req protocol.Request) protocol.Response {
	newDir, err := s.env.ChangeDirectory(req.Path)
	if err != nil {
		return protocol.NewError(req.ID, protocol.ErrDirectoryChangeFailed, err.Error())
	}
	return protocol.Response{ID: req.ID, Kind: "directory-changed", Dir: newDir}
}

func (s *Session) handleKillProcess(req protocol.Request) protocol.Response {
	if !s.env.KillProcess(req.PID) {
		return protocol.NewError(req.ID, protocol.ErrProcessNotFound, fmt.Sprintf("no running process with pid %d", req.PID))
	}
	return protocol.Response{ID: req.ID, Kind: "process-killed", PID: req.PID}
}

func (s *Session) handleListProcesses(req protocol.Request) protocol.Response {
	procs := s.env.ListProcesses()
	summaries := make([]protocol.ProcessSummary, len(procs))
	for i, p := range procs {
		summaries[i] = protocol.ProcessSummary{PID: p.ID, Command: p.Command, Status: p.Status.String()}
	}
	return protocol.Response{ID: req.ID, Kind: "process-list", Processes: summaries}
}

// Server upgrades incoming HTTP connections to websockets and spawns one
// Session per connection, mirroring the teacher's client-map gateway
// pattern but scoped to one shell session's lifetime rather than a shared
// registry of long-lived clients.
type Server struct {
	upgrader websocket.Upgrader
	registry *commands.Registry
	opts     shellenv.Options
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewServer builds a Server sharing one command Registry across sessions
// and creating a fresh Environment per connection with opts.
func NewServer(registry *commands.Registry, opts shellenv.Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		registry: registry,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// ServeHTTP upgrades the connection and runs its Session to completion.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session := NewSession(conn, srv.registry, srv.opts, srv.logger)
	srv.mu.Lock()
	srv.sessions[session.ID] = session
	srv.mu.Unlock()
	defer func() {
		srv.mu.Lock()
		delete(srv.sessions, session.ID)
		srv.mu.Unlock()
	}()

	if err := session.Serve(); err != nil {
		srv.logger.Debug("session closed", "session", session.ID, "error", err)
	}
}

// SessionCount reports how many connections are currently being served.
func (srv *Server) SessionCount() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.sessions)
}
