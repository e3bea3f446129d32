package wasmrt

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

type execStateKey struct{}

func withExecState(ctx context.Context, s *execState) context.Context {
	return context.WithValue(ctx, execStateKey{}, s)
}

func stateFromContext(ctx context.Context) *execState {
	s, _ := ctx.Value(execStateKey{}).(*execState)
	return s
}

// instantiateHostModule registers and instantiates the shell_* import
// namespace every guest module receives, under the module name "env". All
// string and byte transfers happen through the calling module's own linear
// memory, read and written via api.Module.
func instantiateHostModule(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder("env")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) {
			s := stateFromContext(ctx)
			if s == nil {
				return
			}
			if buf, ok := m.Memory().Read(ptr, length); ok {
				s.stdout = append(s.stdout, buf...)
			}
		}).
		WithParameterNames("ptr", "len").
		Export("shell_write_stdout")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) {
			s := stateFromContext(ctx)
			if s == nil {
				return
			}
			if buf, ok := m.Memory().Read(ptr, length); ok {
				s.stderr = append(s.stderr, buf...)
			}
		}).
		WithParameterNames("ptr", "len").
		Export("shell_write_stderr")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, bufPtr, bufLen uint32) uint32 {
			s := stateFromContext(ctx)
			if s == nil {
				return 0
			}
			data := []byte(s.stdin)
			n := uint32(len(data))
			if n > bufLen {
				n = bufLen
			}
			if n > 0 {
				m.Memory().Write(bufPtr, data[:n])
			}
			return n
		}).
		WithParameterNames("buf_ptr", "buf_len").
		WithResultNames("copied").
		Export("shell_read_stdin")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint32 {
			s := stateFromContext(ctx)
			if s == nil {
				return 0
			}
			return uint32(len(s.args))
		}).
		Export("shell_get_argc")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, index, bufPtr, bufLen uint32) uint32 {
			s := stateFromContext(ctx)
			if s == nil || int(index) >= len(s.args) {
				return 0
			}
			data := []byte(s.args[index])
			n := uint32(len(data))
			if n > bufLen {
				n = bufLen
			}
			if n > 0 {
				m.Memory().Write(bufPtr, data[:n])
			}
			return n
		}).
		WithParameterNames("index", "buf_ptr", "buf_len").
		WithResultNames("copied").
		Export("shell_get_arg")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, keyPtr, keyLen, bufPtr, bufLen uint32) uint32 {
			s := stateFromContext(ctx)
			if s == nil {
				return 0
			}
			keyBytes, ok := m.Memory().Read(keyPtr, keyLen)
			if !ok {
				return 0
			}
			value, bound := s.env[string(keyBytes)]
			if !bound {
				return 0
			}
			data := []byte(value)
			n := uint32(len(data))
			if n > bufLen {
				n = bufLen
			}
			if n > 0 {
				m.Memory().Write(bufPtr, data[:n])
			}
			return n
		}).
		WithParameterNames("key_ptr", "key_len", "buf_ptr", "buf_len").
		WithResultNames("copied").
		Export("shell_get_env")

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, code uint32) {
			s := stateFromContext(ctx)
			if s == nil {
				return
			}
			s.exitCode = int(int32(code))
		}).
		WithParameterNames("code").
		Export("shell_set_exit_code")

	return builder.Instantiate(ctx)
}
