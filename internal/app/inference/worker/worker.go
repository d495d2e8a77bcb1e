// Package worker hosts each loaded model in its own Python process and talks to it
// over newline-delimited JSON on stdin/stdout.
package worker

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/model"
)

//go:embed asr_worker.py
var script []byte

const scriptName = "asr_worker.py"

// Config controls how worker processes are started
type Config struct {
	// Python is the interpreter with the engine libraries installed
	Python string
	// ScriptDir is where the helper script is written; defaults to the OS temp dir
	ScriptDir string
	// StopTimeout bounds how long Close waits for a worker to exit before killing it
	StopTimeout time.Duration
}

// Runtime starts one worker process per loaded model
type Runtime struct {
	cfg    Config
	logger *zap.Logger

	once       sync.Once
	scriptPath string
	scriptErr  error
}

// New creates a worker runtime
func New(cfg Config, logger *zap.Logger) *Runtime {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{cfg: cfg, logger: logger}
}

func (r *Runtime) Name() string { return "worker" }

// Supports is true for every option; the helper passes them to the engine library
func (r *Runtime) Supports(string) bool { return true }

func (r *Runtime) helper() (string, error) {
	r.once.Do(func() {
		dir := r.cfg.ScriptDir
		if dir == "" {
			dir = os.TempDir()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			r.scriptErr = errors.Wrap(err, "create script directory")
			return
		}
		r.scriptPath = filepath.Join(dir, scriptName)
		if err := os.WriteFile(r.scriptPath, script, 0o755); err != nil {
			r.scriptErr = errors.Wrap(err, "write worker script")
		}
	})
	return r.scriptPath, r.scriptErr
}

// Args returns the interpreter arguments for spec
func Args(scriptPath string, spec inference.LoadSpec) []string {
	args := []string{
		scriptPath,
		"--engine", string(spec.Engine),
		"--model", spec.Model,
		"--device", string(spec.Device),
	}
	if spec.WeightsDir != "" {
		args = append(args, "--download-root", spec.WeightsDir)
	}
	keys := make([]string, 0, len(spec.Native))
	for k := range spec.Native {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--opt", k+"="+spec.Native[k])
	}
	return args
}

// Load starts a worker and waits until it reports the model ready
func (r *Runtime) Load(ctx context.Context, spec inference.LoadSpec) (inference.Instance, error) {
	path, err := r.helper()
	if err != nil {
		return nil, err
	}

	// The process must outlive ctx, so it is not tied to it
	cmd := exec.Command(r.cfg.Python, Args(path, spec)...)
	cmd.Env = os.Environ()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "worker stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "worker stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "worker stderr")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", r.cfg.Python)
	}

	logger := r.logger.With(zap.String("engine", string(spec.Engine)), zap.String("model", spec.Model), zap.Int("pid", cmd.Process.Pid))
	go logLines(stderr, logger)

	inst := newInstance(stdin, stdout, logger, func() error { return cmd.Wait() }, func() error { return cmd.Process.Kill() })
	inst.stopTimeout = r.cfg.StopTimeout
	if err := inst.awaitReady(ctx); err != nil {
		inst.kill()
		cmd.Wait()
		return nil, err
	}
	logger.Info("worker ready")
	return inst, nil
}

func logLines(r io.Reader, logger *zap.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		logger.Debug("worker", zap.String("line", scanner.Text()))
	}
}

type request struct {
	ID     int64            `json:"id"`
	Op     string           `json:"op"`
	Audio  []byte           `json:"audio"`
	Params inference.Params `json:"params"`
}

type response struct {
	ID         int64         `json:"id"`
	Event      string        `json:"event,omitempty"`
	Error      string        `json:"error,omitempty"`
	Result     *model.Result `json:"result,omitempty"`
	Duration   float64       `json:"duration,omitempty"`
	Language   string        `json:"language,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
}

// Instance is a running worker process. Requests are served one at a time.
type Instance struct {
	stdin       io.WriteCloser
	stdout      *bufio.Reader
	wait        func() error
	killFn      func() error
	logger      *zap.Logger
	stopTimeout time.Duration

	sem    chan struct{}
	nextID atomic.Int64
	broken atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

func newInstance(stdin io.WriteCloser, stdout io.Reader, logger *zap.Logger, wait, kill func() error) *Instance {
	return &Instance{
		stdin:       stdin,
		stdout:      bufio.NewReaderSize(stdout, 1024*1024),
		wait:        wait,
		killFn:      kill,
		logger:      logger,
		stopTimeout: 10 * time.Second,
		sem:         make(chan struct{}, 1),
	}
}

func (i *Instance) readResponse() (*response, error) {
	line, err := i.stdout.ReadBytes('\n')
	if err != nil {
		i.broken.Store(true)
		return nil, errors.Wrap(err, "worker exited")
	}
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		i.broken.Store(true)
		return nil, errors.Wrapf(err, "decode worker output %q", truncate(line, 200))
	}
	return &resp, nil
}

func (i *Instance) awaitReady(ctx context.Context) error {
	type outcome struct {
		resp *response
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		resp, err := i.readResponse()
		ch <- outcome{resp, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return o.err
		}
		if o.resp.Event != "ready" {
			return errors.Newf("worker failed to load: %s", o.resp.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call sends one request and waits for its reply. If ctx ends first the reply is
// still drained in the background so the stream stays in step.
func (i *Instance) call(ctx context.Context, req request) (*response, error) {
	if i.broken.Load() {
		return nil, errors.New("worker is no longer running")
	}
	select {
	case i.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	req.ID = i.nextID.Add(1)
	type outcome struct {
		resp *response
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() { <-i.sem }()
		line, err := json.Marshal(req)
		if err != nil {
			ch <- outcome{nil, errors.Wrap(err, "encode worker request")}
			return
		}
		if _, err := i.stdin.Write(append(line, '\n')); err != nil {
			i.broken.Store(true)
			ch <- outcome{nil, errors.Wrap(err, "write worker request")}
			return
		}
		resp, err := i.readResponse()
		if err == nil && resp.ID != req.ID {
			i.broken.Store(true)
			err = errors.Newf("worker replied to request %d, expected %d", resp.ID, req.ID)
		}
		ch <- outcome{resp, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			return nil, o.err
		}
		if o.resp.Error != "" {
			return nil, errors.New(o.resp.Error)
		}
		return o.resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (i *Instance) Transcribe(ctx context.Context, audio []byte, params inference.Params) (*model.Result, error) {
	resp, err := i.call(ctx, request{Op: "transcribe", Audio: audio, Params: params})
	if err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, errors.New("worker returned no result")
	}
	resp.Result.Duration = time.Duration(resp.Duration * float64(time.Second))
	return resp.Result, nil
}

func (i *Instance) DetectLanguage(ctx context.Context, audio []byte) (model.LanguageDetection, error) {
	resp, err := i.call(ctx, request{Op: "detect_language", Audio: audio})
	if err != nil {
		return model.LanguageDetection{}, err
	}
	return model.LanguageDetection{Language: resp.Language, Confidence: resp.Confidence}, nil
}

// Close ends the worker by closing its stdin, killing it if it does not exit in time
func (i *Instance) Close() error {
	i.closeOnce.Do(func() {
		i.broken.Store(true)
		i.stdin.Close()

		done := make(chan error, 1)
		go func() { done <- i.wait() }()
		select {
		case err := <-done:
			i.closeErr = err
		case <-time.After(i.stopTimeout):
			i.logger.Warn("worker did not exit, killing it", zap.Duration("after", i.stopTimeout))
			i.kill()
			<-done
		}
	})
	return i.closeErr
}

func (i *Instance) kill() {
	i.broken.Store(true)
	i.stdin.Close()
	if err := i.killFn(); err != nil {
		i.logger.Debug("kill worker", zap.Error(err))
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
