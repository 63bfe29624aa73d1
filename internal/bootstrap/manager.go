// Package bootstrap installs the Linux userland: it downloads a root
// filesystem archive, extracts it under the app's data directory, and
// writes the configuration files the guest needs on first boot. One
// manager runs at most one installation at a time; progress surfaces
// through a listener whose callbacks are delivered in order from a single
// goroutine, so UI layers never see interleaved events.
package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Package-level logger
var logger *log.Logger

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "bootstrap",
	})
}

// SetLogLevel sets the logging level for the bootstrap package.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}

// DefaultDownloadURL is the published Arch Linux ARM rootfs artifact.
const DefaultDownloadURL = "https://os.archlinuxarm.org/os/ArchLinuxARM-aarch64-latest.tar.gz"

// DefaultMinFreeBytes is the disk headroom required before an install
// begins: the compressed download plus the extracted tree.
const DefaultMinFreeBytes = 4 << 30

// rootfsDirName is the directory under the base dir holding the guest tree.
const rootfsDirName = "arch"

// essentialDirs must all exist for an installation to count as complete.
var essentialDirs = []string{
	"bin", "etc", "home", "lib", "mnt",
	"opt", "root", "sbin", "srv", "usr", "var",
}

// ErrAlreadyRunning is returned by Start while an installation is in
// flight.
var ErrAlreadyRunning = errors.New("bootstrap already running")

// Listener receives installation lifecycle events. Callbacks arrive
// sequentially from one goroutine; implementations marshal to their own
// execution context if they need one.
type Listener interface {
	BootstrapStarted(message string)
	ProgressUpdated(current, total int64)
	BootstrapComplete()
	BootstrapFailed(reason string)
}

// Config locates the installation on disk and bounds its resource use.
type Config struct {
	// DownloadURL overrides the rootfs artifact location.
	DownloadURL string
	// BaseDir is the app data directory; the rootfs lands under it.
	BaseDir string
	// CacheDir holds the downloaded archive until extraction finishes.
	CacheDir string
	// MinFreeBytes is the free-space floor checked before starting.
	MinFreeBytes uint64
}

func (c *Config) applyDefaults() {
	if c.DownloadURL == "" {
		c.DownloadURL = DefaultDownloadURL
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.BaseDir, "cache")
	}
	if c.MinFreeBytes == 0 {
		c.MinFreeBytes = DefaultMinFreeBytes
	}
}

// Manager coordinates one installation sequence at a time.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	listener Listener
	cancel   context.CancelFunc

	running atomic.Bool
}

// New returns a manager for the given locations. BaseDir must be set;
// everything else has defaults.
func New(cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{cfg: cfg}
}

// SetListener installs the event sink. It may be swapped at any time,
// including mid-run; subsequent events go to the new listener.
func (m *Manager) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

func (m *Manager) currentListener() Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listener
}

// RootfsDir is where the guest filesystem tree lives.
func (m *Manager) RootfsDir() string {
	return filepath.Join(m.cfg.BaseDir, rootfsDirName)
}

// LaunchScriptPath is where the proot launch script is written.
func (m *Manager) LaunchScriptPath() string {
	return filepath.Join(m.cfg.BaseDir, "bin", "start-arch.sh")
}

// Running reports whether an installation is in flight.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// Installed reports whether a previous installation looks complete: the
// rootfs directory exists and carries the essential top-level directories.
func (m *Manager) Installed() bool {
	root := m.RootfsDir()
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return false
	}
	for _, dir := range essentialDirs {
		info, err := os.Stat(filepath.Join(root, dir))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

// Start launches the installation sequence on a background goroutine. It
// returns ErrAlreadyRunning while a previous run is in flight. ctx bounds
// the whole run; Cancel aborts it cooperatively.
func (m *Manager) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	events := make(chan event, 16)
	notifierDone := make(chan struct{})
	go func() {
		defer close(notifierDone)
		for ev := range events {
			if l := m.currentListener(); l != nil {
				ev(l)
			}
		}
	}()

	go func() {
		defer m.running.Store(false)
		defer cancel()
		m.run(ctx, notifier(events))
		close(events)
		<-notifierDone
	}()
	return nil
}

// Cancel requests a cooperative stop. The run observes it at its next
// checkpoint, deletes partial output, and finishes without a completion
// or failure event.
func (m *Manager) Cancel() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Reset deletes everything a previous installation may have left behind.
// It must not be called while a run is in flight.
func (m *Manager) Reset() error {
	var errs []error
	for _, dir := range []string{
		m.RootfsDir(),
		filepath.Join(m.cfg.BaseDir, "home"),
		filepath.Join(m.cfg.BaseDir, "bin"),
	} {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// event delivers one listener callback; notifier queues them for the
// single consumer goroutine.
type event func(Listener)

type notifier chan<- event

func (n notifier) started(message string) {
	n <- func(l Listener) { l.BootstrapStarted(message) }
}

func (n notifier) progress(current, total int64) {
	n <- func(l Listener) { l.ProgressUpdated(current, total) }
}

func (n notifier) complete() {
	n <- func(l Listener) { l.BootstrapComplete() }
}

func (n notifier) failed(reason string) {
	n <- func(l Listener) { l.BootstrapFailed(reason) }
}
