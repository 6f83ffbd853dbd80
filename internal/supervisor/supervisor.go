// Package supervisor owns the set of channel processes, arbitrates
// capture devices, and reference-counts the shared media server.
package supervisor

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/streamdock/streamdock/internal/channel"
	"github.com/streamdock/streamdock/internal/config"
	"github.com/streamdock/streamdock/internal/events"
	"github.com/streamdock/streamdock/internal/ffmpeg"
	"github.com/streamdock/streamdock/internal/logging"
	"github.com/streamdock/streamdock/internal/metrics"
)

// logTailSize bounds the per-channel encoder output kept in memory.
const logTailSize = 200

// MediaService is the reference-counted dependent service the
// supervisor coordinates channel starts against.
type MediaService interface {
	Acquire() error
	Release()
	Running() bool
	Shutdown()
}

// CommandBuilder derives the encoder argument vector for a channel.
type CommandBuilder func(cfg config.Channel, outputDir string) ([]string, error)

// channelState is the supervisor's view of one configured channel.
// All fields are guarded by Supervisor.mu.
type channelState struct {
	cfg       config.Channel
	state     channel.State
	proc      *channel.Process
	exitCode  int
	mediaHeld bool
	logTail   []string
}

// Info is a read-only snapshot of one channel for API consumers.
type Info struct {
	Config   config.Channel
	Slug     string
	State    channel.State
	ExitCode int
	LogTail  []string
}

// Options configures a Supervisor.
type Options struct {
	OutputRoot string
	Media      MediaService
	Builder    CommandBuilder
	Bus        *events.Bus
	Metrics    *metrics.Metrics
}

// Supervisor is the single source of truth for channel and device
// state. All mutating operations serialize through one mutex so the
// device-conflict check and ownership registration are atomic.
type Supervisor struct {
	outputRoot string
	media      MediaService
	builder    CommandBuilder
	bus        *events.Bus
	metrics    *metrics.Metrics
	logger     *slog.Logger
	procLogger *slog.Logger

	mu       sync.Mutex
	channels map[string]*channelState // keyed by slug
	order    []string                 // slugs in insertion order
}

// New creates a supervisor with no channels configured.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		outputRoot: opts.OutputRoot,
		media:      opts.Media,
		builder:    opts.Builder,
		bus:        opts.Bus,
		metrics:    opts.Metrics,
		logger:     logging.GetLogger("supervisor"),
		procLogger: logging.GetLogger("ffmpeg"),
		channels:   make(map[string]*channelState),
	}

	// Encoder output feeds each channel's bounded log tail.
	s.bus.Subscribe(func(e events.ChannelLogEvent) {
		s.appendLogTail(e.Channel, e.Line)
	})

	return s
}

// AddChannel registers a channel configuration in the Idle state.
func (s *Supervisor) AddChannel(cfg config.Channel) error {
	if err := cfg.Validate(); err != nil {
		return wrapError(CodeInvalidConfig, err, "invalid channel config")
	}
	slug := cfg.Slug()

	s.mu.Lock()
	if _, exists := s.channels[slug]; exists {
		s.mu.Unlock()
		return newError(CodeDuplicateChannel, "channel %q already exists (slug %q)", cfg.Name, slug)
	}
	s.channels[slug] = &channelState{cfg: cfg, state: channel.StateIdle}
	s.order = append(s.order, slug)
	s.mu.Unlock()

	s.logger.Info("Channel added", "channel", cfg.Name, "slug", slug)
	s.bus.Publish(events.ChannelAddedEvent{
		Channel:   cfg.Name,
		Slug:      slug,
		Timestamp: timestamp(),
	})
	return nil
}

// RemoveChannel deletes a channel configuration. Refused unless the
// channel is Idle or Failed, so a running encoder is never orphaned.
func (s *Supervisor) RemoveChannel(name string) error {
	slug := config.Slugify(name)

	s.mu.Lock()
	st, ok := s.channels[slug]
	if !ok {
		s.mu.Unlock()
		return newError(CodeChannelNotFound, "channel %q not found", name)
	}
	if st.state.Active() || st.state == channel.StateStopping {
		s.mu.Unlock()
		return newError(CodeChannelBusy, "channel %q is %s, stop it first", name, st.state)
	}
	delete(s.channels, slug)
	for i, sl := range s.order {
		if sl == slug {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.logger.Info("Channel removed", "channel", name)
	s.bus.Publish(events.ChannelRemovedEvent{
		Channel:   st.cfg.Name,
		Timestamp: timestamp(),
	})
	return nil
}

// StartChannel acquires the media server, checks the video device
// against every other active channel, prepares the output directory,
// and launches the encoder. The device check and ownership registration
// happen under the same lock acquisition.
func (s *Supervisor) StartChannel(name string) error {
	slug := config.Slugify(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.channels[slug]
	if !ok {
		return newError(CodeChannelNotFound, "channel %q not found", name)
	}
	if st.state != channel.StateIdle && st.state != channel.StateFailed {
		return newError(CodeChannelBusy, "channel %q is already %s", name, st.state)
	}

	// Media server first: a missing server executable must abort
	// before any device or process state changes.
	if err := s.media.Acquire(); err != nil {
		s.countStartFailure(slug, CodeServiceUnavailable)
		return wrapError(CodeServiceUnavailable, err, "media server unavailable")
	}

	if st.cfg.VideoDeviceID != "" {
		if owner, inUse := s.deviceOwnerLocked(st.cfg.VideoDeviceID, slug); inUse {
			s.media.Release()
			s.countStartFailure(slug, CodeDeviceInUse)
			return errDeviceInUse(st.cfg.VideoDeviceLabel, owner)
		}
	}

	outputDir := filepath.Join(s.outputRoot, slug)
	if err := prepareOutputDir(outputDir); err != nil {
		s.media.Release()
		s.countStartFailure(slug, CodeIOFailure)
		return wrapError(CodeIOFailure, err, "prepare output directory %s", outputDir)
	}

	args, err := s.builder(st.cfg, outputDir)
	if err != nil {
		s.media.Release()
		code := CodeLaunchFailure
		if isMissingExecutable(err) {
			code = CodeMissingExecutable
		}
		s.countStartFailure(slug, code)
		return wrapError(code, err, "build encoder command for %q", name)
	}

	st.state = channel.StateStarting
	s.publishState(st)

	proc := channel.NewProcess(st.cfg.Name, s.procLogger.With("channel", st.cfg.Name), s.bus,
		func(code int, requested bool) { s.handleExit(slug, code, requested) })

	if err := proc.Start(args); err != nil {
		st.state = channel.StateFailed
		st.exitCode = channel.ExitCodeLaunchFailure
		s.publishState(st)
		s.media.Release()
		s.countStartFailure(slug, CodeLaunchFailure)
		return wrapError(CodeLaunchFailure, err, "launch encoder for %q", name)
	}

	st.proc = proc
	st.state = channel.StateRunning
	st.mediaHeld = true
	s.publishState(st)
	s.updateGaugesLocked()
	if s.metrics != nil {
		s.metrics.ChannelStarts.WithLabelValues(st.cfg.Name).Inc()
	}

	s.logger.Info("Channel started", "channel", name, "output", outputDir)
	return nil
}

// StopChannel stops a running channel, cleans up its segment
// artifacts, and releases the media server reference. Stopping an idle
// channel is a logged no-op. Blocks for up to the encoder's grace and
// kill timeouts.
func (s *Supervisor) StopChannel(name string) error {
	slug := config.Slugify(name)

	s.mu.Lock()
	st, ok := s.channels[slug]
	if !ok {
		s.mu.Unlock()
		return newError(CodeChannelNotFound, "channel %q not found", name)
	}
	if !st.state.Active() || st.proc == nil {
		s.mu.Unlock()
		s.logger.Info("Stop requested for inactive channel", "channel", name, "state", st.state)
		return nil
	}

	proc := st.proc
	chName := st.cfg.Name
	st.state = channel.StateStopping
	s.publishState(st)
	// Release the lock while the stop blocks so other channels stay
	// controllable and the exit handler can run.
	s.mu.Unlock()

	proc.Stop()

	s.mu.Lock()
	st.proc = nil
	st.state = channel.StateIdle
	released := st.mediaHeld
	st.mediaHeld = false
	s.publishState(st)
	s.mu.Unlock()

	// Best effort: leftover segments and playlists are stale the moment
	// the encoder is gone.
	if err := removeArtifacts(filepath.Join(s.outputRoot, slug)); err != nil {
		s.logger.Warn("Failed to clean output directory", "channel", chName, "error", err)
	}

	if released {
		s.media.Release()
	}
	s.refreshGauges()
	if s.metrics != nil {
		s.metrics.ChannelStops.WithLabelValues(chName).Inc()
	}

	s.logger.Info("Channel stopped", "channel", chName)
	return nil
}

// handleExit runs on the process monitor goroutine when an encoder
// terminates. Requested exits are fully handled by StopChannel; only
// spontaneous exits transition state and release resources here.
func (s *Supervisor) handleExit(slug string, code int, requested bool) {
	s.mu.Lock()
	st, ok := s.channels[slug]
	if !ok {
		s.mu.Unlock()
		return
	}
	name := st.cfg.Name
	st.exitCode = code

	if requested {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.EncoderExits.WithLabelValues(name, "true").Inc()
		}
		return
	}

	st.proc = nil
	if code == 0 {
		st.state = channel.StateIdle
	} else {
		st.state = channel.StateFailed
	}
	released := st.mediaHeld
	st.mediaHeld = false
	s.publishState(st)
	s.mu.Unlock()

	if released {
		s.media.Release()
	}
	s.refreshGauges()
	if s.metrics != nil {
		s.metrics.EncoderExits.WithLabelValues(name, "false").Inc()
	}
	s.logger.Warn("Channel exited on its own", "channel", name, "exit_code", code)
}

// IsDeviceInUse reports which active channel, if any, holds the video
// device, excluding the named channel from the scan.
func (s *Supervisor) IsDeviceInUse(altID, excludingChannel string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceOwnerLocked(altID, config.Slugify(excludingChannel))
}

// deviceOwnerLocked scans Running and Starting channels for the video
// device. Caller holds s.mu.
func (s *Supervisor) deviceOwnerLocked(altID, excludeSlug string) (string, bool) {
	if altID == "" {
		return "", false
	}
	for slug, st := range s.channels {
		if slug == excludeSlug || !st.state.Active() {
			continue
		}
		if st.cfg.VideoDeviceID == altID {
			return st.cfg.Name, true
		}
	}
	return "", false
}

// Snapshot returns the current channel configurations in insertion
// order, suitable for persisting.
func (s *Supervisor) Snapshot() []config.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]config.Channel, 0, len(s.order))
	for _, slug := range s.order {
		out = append(out, s.channels[slug].cfg)
	}
	return out
}

// Restore registers persisted channel configurations, skipping entries
// that fail so one bad record cannot drop the rest of the file. All
// channels come back Idle; auto-start is a separate explicit pass.
func (s *Supervisor) Restore(cfgs []config.Channel) error {
	var errs []error
	for _, cfg := range cfgs {
		if err := s.AddChannel(cfg); err != nil {
			s.logger.Warn("Skipping channel during restore", "channel", cfg.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartAutoStartChannels starts every idle channel marked auto-start,
// logging individual failures without aborting the pass.
func (s *Supervisor) StartAutoStartChannels() {
	for _, info := range s.Channels() {
		if !info.Config.AutoStart || info.State != channel.StateIdle {
			continue
		}
		if err := s.StartChannel(info.Config.Name); err != nil {
			s.logger.Warn("Auto-start failed", "channel", info.Config.Name, "error", err)
		}
	}
}

// Channels returns a snapshot of every channel in insertion order.
func (s *Supervisor) Channels() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Info, 0, len(s.order))
	for _, slug := range s.order {
		out = append(out, s.infoLocked(slug, s.channels[slug]))
	}
	return out
}

// Channel returns one channel's snapshot.
func (s *Supervisor) Channel(name string) (Info, error) {
	slug := config.Slugify(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.channels[slug]
	if !ok {
		return Info{}, newError(CodeChannelNotFound, "channel %q not found", name)
	}
	return s.infoLocked(slug, st), nil
}

func (s *Supervisor) infoLocked(slug string, st *channelState) Info {
	tail := make([]string, len(st.logTail))
	copy(tail, st.logTail)
	return Info{
		Config:   st.cfg,
		Slug:     slug,
		State:    st.state,
		ExitCode: st.exitCode,
		LogTail:  tail,
	}
}

// Shutdown stops every active channel and then the media server.
// Individual stop failures are logged, never fatal to the sequence.
func (s *Supervisor) Shutdown() {
	for _, info := range s.Channels() {
		if info.State.Active() {
			if err := s.StopChannel(info.Config.Name); err != nil {
				s.logger.Warn("Shutdown stop failed", "channel", info.Config.Name, "error", err)
			}
		}
	}
	s.media.Shutdown()
	s.refreshGauges()
	s.logger.Info("Supervisor shut down")
}

func (s *Supervisor) appendLogTail(name, line string) {
	slug := config.Slugify(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.channels[slug]
	if !ok {
		return
	}
	st.logTail = append(st.logTail, line)
	if len(st.logTail) > logTailSize {
		st.logTail = st.logTail[len(st.logTail)-logTailSize:]
	}
}

// publishState emits a state-change event. Caller holds s.mu.
func (s *Supervisor) publishState(st *channelState) {
	s.bus.Publish(events.ChannelStateChangedEvent{
		Channel:   st.cfg.Name,
		State:     string(st.state),
		Timestamp: timestamp(),
	})
}

func (s *Supervisor) countStartFailure(slug string, code ErrorCode) {
	if s.metrics == nil {
		return
	}
	name := slug
	if st, ok := s.channels[slug]; ok {
		name = st.cfg.Name
	}
	s.metrics.ChannelStartFailures.WithLabelValues(name, string(code)).Inc()
}

// refreshGauges recomputes the gauges. Caller must not hold s.mu.
func (s *Supervisor) refreshGauges() {
	if s.metrics == nil {
		return
	}
	s.mu.Lock()
	s.updateGaugesLocked()
	s.mu.Unlock()
}

// updateGaugesLocked recomputes the gauges. Caller holds s.mu.
func (s *Supervisor) updateGaugesLocked() {
	if s.metrics == nil {
		return
	}
	active := 0
	for _, st := range s.channels {
		if st.state.Active() {
			active++
		}
	}
	s.metrics.ActiveChannels.Set(float64(active))
	if s.media.Running() {
		s.metrics.MediaServerUp.Set(1)
	} else {
		s.metrics.MediaServerUp.Set(0)
	}
}

// prepareOutputDir creates the channel directory and clears stale
// segment artifacts from a previous run.
func prepareOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return removeArtifacts(dir)
}

// removeArtifacts deletes segment and playlist files, leaving the
// directory itself in place.
func removeArtifacts(dir string) error {
	var firstErr error
	for _, pattern := range []string{"*.ts", "*.m3u8"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func isMissingExecutable(err error) bool {
	return errors.Is(err, ffmpeg.ErrMissingExecutable)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
