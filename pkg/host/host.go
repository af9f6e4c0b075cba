// Package host routes the events the hosting environment delivers outside of
// the side panel: installation, toolbar action clicks and storage changes.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/sidenote/pkg/core"
)

const (
	// DefaultWelcomeURL is opened on first install.
	DefaultWelcomeURL = "https://www.aivoicerecorder.pro/welcome.html"
	// DefaultPanelPage is opened as a tab when the side panel is unavailable.
	DefaultPanelPage = "sidepanel.html"
	// DefaultServerURL is the backend written into the local area on install.
	DefaultServerURL = "https://api.aivoicerecorder.pro"
	// ServerURLKey is the local-area key holding the backend URL.
	ServerURLKey = "serverUrl"
)

// ErrInternalPage is returned for action clicks on browser-internal pages.
var ErrInternalPage = errors.New("cannot run on internal pages")

// InstallReason tells why Installed fired.
type InstallReason string

const (
	ReasonInstall InstallReason = "install"
	ReasonUpdate  InstallReason = "update"
)

// Event is one host notification.
type Event interface {
	event() string
}

// Installed fires after the extension is installed or updated.
type Installed struct {
	Reason          InstallReason
	PreviousVersion string
}

// ActionClicked fires when the toolbar action is clicked on a tab.
type ActionClicked struct {
	TabID int
	URL   string
}

// StorageChanged carries a change set from a storage area.
type StorageChanged struct {
	Changes core.ChangeSet
}

// OpenWelcome asks for the welcome page explicitly.
type OpenWelcome struct{}

func (Installed) event() string      { return "installed" }
func (ActionClicked) event() string  { return "action_clicked" }
func (StorageChanged) event() string { return "storage_changed" }
func (OpenWelcome) event() string    { return "open_welcome" }

// Panel opens the side panel on a tab.
type Panel interface {
	Open(ctx context.Context, tabID int) error
}

// Tabs opens new tabs.
type Tabs interface {
	Create(ctx context.Context, url string) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithWelcomeURL overrides the page opened on install.
func WithWelcomeURL(url string) Option {
	return func(d *Dispatcher) { d.welcomeURL = url }
}

// WithPanelPage overrides the fallback page of the side panel.
func WithPanelPage(page string) Option {
	return func(d *Dispatcher) { d.panelPage = page }
}

// WithInstallSettings writes values into area on every install or update.
func WithInstallSettings(area core.StorageArea, values map[string]json.RawMessage) Option {
	return func(d *Dispatcher) {
		d.settingsArea = area
		d.settings = values
	}
}

// WithStorageHandler receives change sets of the synchronized area.
func WithStorageHandler(fn func(core.ChangeSet)) Option {
	return func(d *Dispatcher) { d.onStorage = fn }
}

// Dispatcher handles host events.
type Dispatcher struct {
	tabs   Tabs
	panel  Panel
	logger *slog.Logger

	welcomeURL   string
	panelPage    string
	settingsArea core.StorageArea
	settings     map[string]json.RawMessage
	onStorage    func(core.ChangeSet)
}

// NewDispatcher creates a dispatcher. panel may be nil when the host has no
// side panel; action clicks then open the panel page as a tab.
func NewDispatcher(tabs Tabs, panel Panel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tabs:       tabs,
		panel:      panel,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		welcomeURL: DefaultWelcomeURL,
		panelPage:  DefaultPanelPage,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one event.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	d.logger.Debug("host event", "event", ev.event())
	switch e := ev.(type) {
	case Installed:
		return d.installed(ctx, e)
	case ActionClicked:
		return d.actionClicked(ctx, e)
	case StorageChanged:
		if e.Changes.Area != core.AreaSync || d.onStorage == nil {
			return nil
		}
		d.onStorage(e.Changes)
		return nil
	case OpenWelcome:
		return d.openTab(ctx, d.welcomeURL)
	default:
		return fmt.Errorf("unknown host event %T", ev)
	}
}

func (d *Dispatcher) installed(ctx context.Context, e Installed) error {
	var errs []error
	if d.settingsArea != nil && len(d.settings) > 0 {
		if err := d.settingsArea.Set(ctx, d.settings); err != nil {
			errs = append(errs, fmt.Errorf("failed to write install settings: %w", err))
		}
	}
	if e.Reason == ReasonInstall {
		errs = append(errs, d.openTab(ctx, d.welcomeURL))
	} else {
		d.logger.Info("extension updated", "previous_version", e.PreviousVersion)
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) actionClicked(ctx context.Context, e ActionClicked) error {
	if strings.HasPrefix(e.URL, "chrome://") {
		d.logger.Info("cannot run on chrome:// pages", "url", e.URL)
		return ErrInternalPage
	}
	if d.panel == nil {
		return d.openTab(ctx, d.panelPage)
	}
	if err := d.panel.Open(ctx, e.TabID); err != nil {
		d.logger.Error("failed to open side panel", "tab", e.TabID, "error", err)
		return d.openTab(ctx, d.panelPage)
	}
	return nil
}

func (d *Dispatcher) openTab(ctx context.Context, url string) error {
	if err := d.tabs.Create(ctx, url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

// Run handles events until the channel closes or ctx is done. Failures are
// logged and do not stop the loop.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := d.Handle(ctx, ev); err != nil {
				d.logger.Error("failed to handle host event", "event", ev.event(), "error", err)
			}
		}
	}
}

// StorageEvents adapts a lifecycle event stream, such as the one produced by
// adapters/lifecycle.NewSource, to host events. Events that are not change
// sets are skipped.
func StorageEvents(ctx context.Context, events <-chan lifecycle.Event) <-chan Event {
	out := make(chan Event)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		for ev := range events {
			cs, ok := ev.(core.ChangeSet)
			if !ok {
				continue
			}
			select {
			case out <- StorageChanged{Changes: cs}:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})
	return out
}
