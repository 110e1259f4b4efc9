package scanner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/dockerscanner/scanner-bridge/internal/models"
	"github.com/dockerscanner/scanner-bridge/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// waitDelay bounds how long Wait keeps reading pipes after the scanner exits,
// for children that leave descendants holding stdout open
const waitDelay = 5 * time.Second

// outcomeGrace is how long a cancelled invocation waits for a reader to take
// its outcome before closing Events without it
const outcomeGrace = 250 * time.Millisecond

// Invocation is the handle of one scanner process.
//
// Events yields output chunks as the scanner produces them, then exactly one
// Outcome event, then the channel is closed. Callers either drain Events or
// call Cancel; an undrained, uncancelled invocation blocks the scanner on its
// next write.
type Invocation struct {
	id        string
	spec      models.CommandSpec
	cwd       string
	maxOutput int64
	logger    *logrus.Entry

	// ctx is cancelled only by the caller; procCtx also stops the scanner on overflow
	ctx     context.Context
	cancel  context.CancelFunc
	procCtx context.Context
	kill    context.CancelFunc
	events  chan models.Event
	started chan struct{}
	done    chan struct{}

	mu       sync.Mutex
	state    models.InvocationState
	history  []models.InvocationState
	pid      int
	outcome  *models.Outcome
	overflow *OutputOverflowError
}

func newInvocation(ctx context.Context, id string, spec models.CommandSpec, cwd string, maxOutput int64, logger *logrus.Entry) *Invocation {
	ctx, cancel := context.WithCancel(ctx)
	procCtx, kill := context.WithCancel(ctx)
	return &Invocation{
		id:        id,
		spec:      spec,
		cwd:       cwd,
		maxOutput: maxOutput,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		procCtx:   procCtx,
		kill:      kill,
		events:    make(chan models.Event),
		started:   make(chan struct{}),
		done:      make(chan struct{}),
		state:     models.InvocationStarting,
		history:   []models.InvocationState{models.InvocationStarting},
	}
}

// ID returns the invocation identifier used in logs
func (inv *Invocation) ID() string {
	return inv.id
}

// Spec returns the command this invocation runs
func (inv *Invocation) Spec() models.CommandSpec {
	return inv.spec
}

// Events returns the ordered, finite output sequence
func (inv *Invocation) Events() <-chan models.Event {
	return inv.events
}

// Done is closed once the outcome is known and Events is closed
func (inv *Invocation) Done() <-chan struct{} {
	return inv.done
}

// Cancel requests termination of the scanner. It is safe to call more than once
// and after the invocation finished.
func (inv *Invocation) Cancel() {
	inv.cancel()
}

// State returns the current lifecycle state
func (inv *Invocation) State() models.InvocationState {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// History returns every state the invocation has been in, in order
func (inv *Invocation) History() []models.InvocationState {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return append([]models.InvocationState(nil), inv.history...)
}

// PID returns the scanner process ID, or 0 if it never started
func (inv *Invocation) PID() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.pid
}

// Outcome returns the final outcome once the invocation is done
func (inv *Invocation) Outcome() (models.Outcome, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.outcome == nil {
		return models.Outcome{}, false
	}
	return *inv.outcome, true
}

// Wait discards any unread events and blocks until the invocation finishes.
// It is meant for callers that do not consume Events themselves.
func (inv *Invocation) Wait() models.Outcome {
	for range inv.events {
	}
	<-inv.done
	outcome, _ := inv.Outcome()
	return outcome
}

func (inv *Invocation) run() {
	defer close(inv.done)
	defer inv.cancel()
	defer inv.kill()

	start := time.Now()
	outcome := inv.execute()
	duration := time.Since(start)

	inv.mu.Lock()
	inv.outcome = &outcome
	inv.mu.Unlock()

	status := string(outcome.Failure)
	if outcome.Success {
		status = string(models.InvocationSucceeded)
	}
	metrics.RecordInvocation(status, duration.Seconds())

	fields := logrus.Fields{
		"exit_code": outcome.ExitCode,
		"duration":  duration,
	}
	if outcome.Success {
		inv.logger.WithFields(fields).Info("Scanner completed successfully")
	} else {
		fields["failure"] = outcome.Failure
		inv.logger.WithFields(fields).WithError(outcome.Err).Warn("Scanner failed")
	}

	inv.deliver(outcome)
	close(inv.events)
}

// deliver sends the outcome as the last event. Without caller cancellation it
// waits for the reader; after Cancel it gives a reader that is still draining
// outcomeGrace to take it.
func (inv *Invocation) deliver(outcome models.Outcome) {
	ev := models.Event{Outcome: &outcome}

	select {
	case inv.events <- ev:
		return
	case <-inv.ctx.Done():
	}

	timer := time.NewTimer(outcomeGrace)
	defer timer.Stop()

	select {
	case inv.events <- ev:
	case <-timer.C:
		inv.logger.Debug("No reader took the outcome of the cancelled invocation")
	}
}

func (inv *Invocation) execute() models.Outcome {
	cmd := exec.CommandContext(inv.procCtx, inv.spec.Executable, inv.spec.Args...)
	cmd.Dir = inv.cwd
	cmd.Stdout = &streamWriter{inv: inv, stream: models.StreamStdout}
	cmd.Stderr = &streamWriter{inv: inv, stream: models.StreamStderr}
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	inv.logger.WithFields(logrus.Fields{
		"executable": inv.spec.Executable,
		"args":       inv.spec.Args,
		"cwd":        inv.cwd,
	}).Debug("Starting scanner")

	if err := cmd.Start(); err != nil {
		inv.transition(models.InvocationFailed)
		if inv.ctx.Err() != nil {
			return inv.cancelledOutcome(-1)
		}
		launchErr := &LaunchError{Executable: inv.spec.Executable, Err: err}
		return models.Outcome{
			Success:    false,
			ExitCode:   -1,
			ReportsDir: inv.spec.ReportsDir,
			Message:    launchErr.Error(),
			Failure:    models.FailureLaunch,
			Err:        launchErr,
		}
	}

	inv.mu.Lock()
	inv.pid = cmd.Process.Pid
	inv.mu.Unlock()
	inv.transition(models.InvocationRunning)
	close(inv.started)

	metrics.InvocationStarted()
	defer metrics.InvocationFinished()

	inv.logger.WithField("pid", cmd.Process.Pid).Info("Scanner started")

	outcome := inv.classify(cmd, cmd.Wait())
	if outcome.Success {
		inv.transition(models.InvocationSucceeded)
	} else {
		inv.transition(models.InvocationFailed)
	}
	return outcome
}

// classify turns the result of Wait into an outcome
func (inv *Invocation) classify(cmd *exec.Cmd, err error) models.Outcome {
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	inv.mu.Lock()
	overflow := inv.overflow
	inv.mu.Unlock()

	if overflow != nil {
		return models.Outcome{
			Success:    false,
			ExitCode:   -1,
			ReportsDir: inv.spec.ReportsDir,
			Message:    fmt.Sprintf("Scan aborted: %s.", overflow.Error()),
			Failure:    models.FailureOverflow,
			Err:        overflow,
		}
	}

	// exit status 0 is success even if output forwarding was cut short
	if err == nil || exitCode == 0 {
		if errors.Is(err, exec.ErrWaitDelay) {
			inv.logger.Warn("Scanner exited but its output was still held open by a child process")
		}
		return SuccessOutcome(inv.spec.ReportsDir)
	}

	if inv.ctx.Err() != nil {
		return inv.cancelledOutcome(exitCode)
	}

	return models.Outcome{
		Success:    false,
		ExitCode:   exitCode,
		ReportsDir: inv.spec.ReportsDir,
		Message:    failureMessage(cmd, exitCode),
		Failure:    models.FailureProcess,
		Err:        &ProcessError{ExitCode: exitCode, Err: err},
	}
}

func (inv *Invocation) cancelledOutcome(exitCode int) models.Outcome {
	return models.Outcome{
		Success:    false,
		ExitCode:   exitCode,
		ReportsDir: inv.spec.ReportsDir,
		Message:    "Scan cancelled.",
		Failure:    models.FailureCancelled,
		Err:        ErrCancelled,
	}
}

// transition moves the state machine forward, ignoring illegal steps
func (inv *Invocation) transition(next models.InvocationState) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if !inv.state.CanTransition(next) {
		inv.logger.WithFields(logrus.Fields{
			"from": inv.state,
			"to":   next,
		}).Error("Illegal invocation state transition")
		return
	}
	inv.state = next
	inv.history = append(inv.history, next)
}

// recordOverflow remembers the first overflowing stream and stops the scanner
func (inv *Invocation) recordOverflow(stream models.Stream) *OutputOverflowError {
	inv.mu.Lock()
	if inv.overflow == nil {
		inv.overflow = &OutputOverflowError{Stream: stream, Limit: inv.maxOutput}
	}
	overflow := inv.overflow
	inv.mu.Unlock()

	inv.logger.WithFields(logrus.Fields{
		"stream": stream,
		"limit":  inv.maxOutput,
	}).Warn("Scanner output limit exceeded, stopping scanner")
	inv.kill()
	return overflow
}

// SuccessOutcome is the outcome of a scanner that exited with status 0
func SuccessOutcome(reportsDir string) models.Outcome {
	return models.Outcome{
		Success:    true,
		ExitCode:   0,
		ReportsDir: reportsDir,
		Message:    "Done. Reports in " + reportsDir,
	}
}

func failureMessage(cmd *exec.Cmd, exitCode int) string {
	if exitCode == -1 && cmd.ProcessState != nil {
		// killed by a signal we did not send
		return fmt.Sprintf("Scan failed (%s).", cmd.ProcessState.String())
	}
	return fmt.Sprintf("Scan failed (exit code %d).", exitCode)
}

// streamWriter forwards one process stream as output chunks
type streamWriter struct {
	inv     *Invocation
	stream  models.Stream
	written int64
}

func (w *streamWriter) Write(p []byte) (int, error) {
	// no chunk may be observed before the invocation is running
	select {
	case <-w.inv.started:
	case <-w.inv.procCtx.Done():
		return 0, ErrCancelled
	}

	if limit := w.inv.maxOutput; limit > 0 && w.written+int64(len(p)) > limit {
		return 0, w.inv.recordOverflow(w.stream)
	}
	w.written += int64(len(p))

	chunk := models.OutputChunk{Stream: w.stream, Text: string(p)}
	select {
	case w.inv.events <- models.Event{Chunk: &chunk}:
		metrics.RecordOutput(string(w.stream), len(p))
		return len(p), nil
	case <-w.inv.procCtx.Done():
		return 0, ErrCancelled
	}
}
