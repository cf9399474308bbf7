// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/fault"
)

const (
	// scriptInputVar carries the JSON-encoded input payload.
	scriptInputVar = "GRAFT_INPUT"
	// scriptSettingPrefix prefixes one environment variable per resolved
	// setting, with the setting name uppercased.
	scriptSettingPrefix = "GRAFT_SETTING_"
	// scriptStderrTail bounds how much captured stderr a failure carries.
	scriptStderrTail = 2048
)

// ScriptFunc builds a transform body from a POSIX shell snippet. The script
// receives the input payload as GRAFT_INPUT (JSON) and each resolved setting
// as GRAFT_SETTING_<NAME>; every non-empty stdout line must be one JSON node
// object, emitted as it is printed. A non-zero exit fails the transform with
// the stderr tail attached. Syntax errors are caught here, before the spec
// is registered.
func ScriptFunc(script string) (Func, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	if err != nil {
		return nil, fmt.Errorf("script syntax error: %w", err)
	}

	return func(rc *RunContext, in entity.Payload) error {
		env, err := scriptEnv(rc.Config(), in)
		if err != nil {
			return fault.Wrap(fault.CodeTransformFailed, "encoding script input", err)
		}

		var stderr bytes.Buffer
		stdout := &scriptEmitter{rc: rc}

		runner, err := interp.New(
			interp.Env(expand.ListEnviron(env...)),
			interp.StdIO(nil, stdout, &stderr),
		)
		if err != nil {
			return fault.Wrap(fault.CodeTransformFailed, "creating script interpreter", err)
		}

		if err := runner.Run(rc.Context(), prog); err != nil {
			if emitErr := stdout.err; emitErr != nil {
				return emitErr
			}
			if ctxErr := rc.Context().Err(); ctxErr != nil {
				return ctxErr
			}
			var exitStatus interp.ExitStatus
			if errors.As(err, &exitStatus) {
				return fault.Newf(fault.CodeTransformFailed, "script exited with status %d: %s",
					int(exitStatus), tail(stderr.String(), scriptStderrTail))
			}
			return fault.Wrap(fault.CodeTransformFailed, "script execution failed", err)
		}

		return stdout.flush()
	}, nil
}

// scriptEnv builds the script environment: the host environment plus the
// input payload and the resolved settings.
func scriptEnv(cfg Config, in entity.Payload) ([]string, error) {
	input, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	env := append(os.Environ(), scriptInputVar+"="+string(input))
	for _, name := range cfg.Names() {
		v, _ := cfg.Get(name)
		env = append(env, scriptSettingPrefix+strings.ToUpper(name)+"="+envValue(v))
	}
	return env, nil
}

// envValue renders a setting value for the environment.
func envValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(encoded)
	}
}

// scriptEmitter splits script stdout into lines and emits each non-empty
// line as one JSON node object. The first bad line stops the script: its
// error is kept and returned in place of the interpreter's write error.
type scriptEmitter struct {
	rc  *RunContext
	buf bytes.Buffer
	err error
}

// Write implements io.Writer.
func (e *scriptEmitter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}

	e.buf.Write(p)
	for {
		line, rest, found := bytes.Cut(e.buf.Bytes(), []byte("\n"))
		if !found {
			break
		}
		lineCopy := append([]byte(nil), line...)
		restCopy := append([]byte(nil), rest...)
		e.buf.Reset()
		e.buf.Write(restCopy)

		if err := e.emitLine(lineCopy); err != nil {
			e.err = err
			return 0, err
		}
	}
	return len(p), nil
}

// flush emits a trailing line without a final newline.
func (e *scriptEmitter) flush() error {
	if e.err != nil {
		return e.err
	}
	line := e.buf.Bytes()
	e.buf.Reset()
	return e.emitLine(line)
}

func (e *scriptEmitter) emitLine(line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var record map[string]any
	if err := json.Unmarshal(line, &record); err != nil {
		return fault.Newf(fault.CodeTransformFailed, "script output is not a JSON object: %q", tail(string(line), 120))
	}
	return e.rc.Emit(record)
}

// tail returns at most n trailing bytes of s.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
