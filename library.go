// Package libburn ties the subsystems under burn/, burn/cue/,
// burn/transport/, burn/jte/ and msg/ together behind a single
// explicitly-initialized context (Design Notes §9), replacing the
// original's collection of file-scope C globals: the drive registry,
// the async worker list, the device whitelist and the messenger
// thresholds.
package libburn

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"libburn/burn"
	"libburn/msg"
)

// Library is the module's single stateful context. A process normally
// creates one via Init and passes it to every entry point rather than
// relying on package-level globals.
type Library struct {
	Messages *msg.Queue
	Drives   *burn.Registry
	Workers  *burn.Pool

	abortPatience time.Duration
}

// Option configures a Library at Init time.
type Option func(*Library)

// WithWhitelist restricts drive scanning to the given device paths.
func WithWhitelist(paths ...string) Option {
	return func(l *Library) { l.Drives.SetWhitelist(paths) }
}

// WithQueueThreshold sets the minimum severity retained in the
// message queue (default msg.NEVER, i.e. nothing queued).
func WithQueueThreshold(s msg.Severity) Option {
	return func(l *Library) { l.Messages.SetQueueThreshold(s) }
}

// WithPrintThreshold sets the minimum severity echoed to stderr
// (default msg.FATAL).
func WithPrintThreshold(s msg.Severity) Option {
	return func(l *Library) { l.Messages.SetPrintThreshold(s) }
}

// WithAbortPatience sets the default patience Shutdown passes to
// Pool.Abort (§4.5 "Signal handling": burn_abort's patience budget).
func WithAbortPatience(d time.Duration) Option {
	return func(l *Library) { l.abortPatience = d }
}

// Init builds a Library with libburn's documented defaults (empty
// whitelist, queue threshold NEVER, print threshold FATAL, 20s abort
// patience) and applies opts in order, mirroring Design Notes §9's
// "explicitly-initialized Library context created once by initialize".
func Init(opts ...Option) *Library {
	l := &Library{
		Messages:      msg.NewQueue(),
		Drives:        burn.NewRegistry(),
		Workers:       burn.NewPool(),
		abortPatience: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config is the declarative subset of Library state loadable from
// YAML (§9 AMBIENT STACK: "gopkg.in/yaml.v3... mirroring
// doismellburning-samoyed/src/deviceid.go's tocalls.yaml config
// loading"): the device whitelist and the two message thresholds.
type Config struct {
	Whitelist     []string `yaml:"whitelist"`
	QueueMinSev   string   `yaml:"queue_min_severity"`
	PrintMinSev   string   `yaml:"print_min_severity"`
	AbortPatience string   `yaml:"abort_patience"`
}

// LoadConfig reads a YAML config file and returns the Options it
// describes, for passing straight into Init.
func LoadConfig(path string) ([]Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("libburn: reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("libburn: parsing config %s: %w", path, err)
	}

	var opts []Option
	if len(cfg.Whitelist) > 0 {
		opts = append(opts, WithWhitelist(cfg.Whitelist...))
	}
	if cfg.QueueMinSev != "" {
		sev, ok := msg.ParseSeverity(cfg.QueueMinSev)
		if !ok {
			return nil, fmt.Errorf("libburn: config %s: unknown queue_min_severity %q", path, cfg.QueueMinSev)
		}
		opts = append(opts, WithQueueThreshold(sev))
	}
	if cfg.PrintMinSev != "" {
		sev, ok := msg.ParseSeverity(cfg.PrintMinSev)
		if !ok {
			return nil, fmt.Errorf("libburn: config %s: unknown print_min_severity %q", path, cfg.PrintMinSev)
		}
		opts = append(opts, WithPrintThreshold(sev))
	}
	if cfg.AbortPatience != "" {
		d, err := time.ParseDuration(cfg.AbortPatience)
		if err != nil {
			return nil, fmt.Errorf("libburn: config %s: invalid abort_patience %q: %w", path, cfg.AbortPatience, err)
		}
		opts = append(opts, WithAbortPatience(d))
	}
	return opts, nil
}

// Shutdown aborts every registered drive still busy (§4.5
// burn_abort), waiting up to the configured patience in total for them
// to settle, then releases every drive. pacifier, if non-nil, is invoked
// roughly once per second with elapsed time while waiting.
func (l *Library) Shutdown(pacifier func(elapsed time.Duration)) {
	drives := l.Drives.Drives()
	l.Workers.Abort(drives, l.abortPatience, pacifier)
	for _, d := range drives {
		if !d.IsReleased() {
			_ = d.Release(false)
		}
	}
}
