package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/dshills/launchsearch/internal/classifier"
)

// Target app keywords for actions handled by another app
var (
	ContactsApps = []string{"contacts", "dialer"}
	FilesApps    = []string{"files", "filemanager", "myfiles"}
	CalendarApps = []string{"calendar"}
	ClockApps    = []string{"deskclock", "clock"}
)

// ErrOpenerRequired is returned when no opener is given
var ErrOpenerRequired = errors.New("platform: opener is required")

// Gateway turns launches and actions into opened targets. It implements
// both executor gateways.
type Gateway struct {
	catalog *Catalog
	opener  Opener
	share   io.Writer
	logger  *slog.Logger
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithShareWriter writes shared text to w
func WithShareWriter(w io.Writer) GatewayOption {
	return func(g *Gateway) {
		g.share = w
	}
}

// WithGatewayLogger sets the logger for the gateway
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// NewGateway creates a gateway over catalog
func NewGateway(catalog *Catalog, opener Opener, opts ...GatewayOption) (*Gateway, error) {
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if opener == nil {
		return nil, ErrOpenerRequired
	}
	g := &Gateway{catalog: catalog, opener: opener, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ErrCatalogRequired is returned when no catalog is given
var ErrCatalogRequired = errors.New("platform: catalog is required")

// escape encodes v like a URI component: spaces become %20
func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// Action URIs
func CallURI(v string) string            { return "tel:" + escape(v) }
func MessageURI(v string) string         { return "sms:" + escape(v) }
func EmailURI(v string) string           { return "mailto:" + escape(v) }
func WebSearchURI(v string) string       { return "https://www.google.com/search?q=" + escape(v) }
func WikipediaSearchURI(v string) string { return "https://en.wikipedia.org/w/index.php?search=" + escape(v) }
func PlacesURI(v string) string          { return "geo:0,0?q=" + escape(v) }

// LaunchItem opens the app key
func (g *Gateway) LaunchItem(ctx context.Context, key string) error {
	target, err := g.catalog.appTarget(key)
	if err != nil {
		return err
	}
	return g.open(ctx, target)
}

// LaunchShortcut opens one shortcut of ownerKey
func (g *Gateway) LaunchShortcut(ctx context.Context, ownerKey, shortcutID string) error {
	target, err := g.catalog.shortcutTarget(ownerKey, shortcutID)
	if err != nil {
		return err
	}
	return g.open(ctx, target)
}

func (g *Gateway) open(ctx context.Context, target string) error {
	if err := g.opener.Open(ctx, target); err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	return nil
}

// launchTargetApp launches the first app matching keywords; nothing happens when none does
func (g *Gateway) launchTargetApp(ctx context.Context, keywords []string) error {
	app, ok := g.catalog.FindByKeyword(keywords...)
	if !ok {
		g.logger.Debug("no target app installed", "keywords", keywords)
		return nil
	}
	return g.LaunchItem(ctx, app.Key)
}

func (g *Gateway) Call(ctx context.Context, v string) error    { return g.open(ctx, CallURI(v)) }
func (g *Gateway) Message(ctx context.Context, v string) error { return g.open(ctx, MessageURI(v)) }
func (g *Gateway) Email(ctx context.Context, v string) error   { return g.open(ctx, EmailURI(v)) }

func (g *Gateway) OpenURL(ctx context.Context, v string) error {
	return g.open(ctx, classifier.ToURL(v))
}

func (g *Gateway) WebSearch(ctx context.Context, v string) error {
	return g.open(ctx, WebSearchURI(v))
}

func (g *Gateway) SearchWikipedia(ctx context.Context, v string) error {
	return g.open(ctx, WikipediaSearchURI(v))
}

func (g *Gateway) SearchPlaces(ctx context.Context, v string) error {
	return g.open(ctx, PlacesURI(v))
}

// Share writes v to the share writer, or logs it when none is set
func (g *Gateway) Share(_ context.Context, v string) error {
	if g.share == nil {
		g.logger.Info("share", "text", v)
		return nil
	}
	if _, err := fmt.Fprintln(g.share, v); err != nil {
		return fmt.Errorf("share: %w", err)
	}
	return nil
}

func (g *Gateway) CreateContact(ctx context.Context, _ string) error {
	return g.launchTargetApp(ctx, ContactsApps)
}

func (g *Gateway) SearchFiles(ctx context.Context, _ string) error {
	return g.launchTargetApp(ctx, FilesApps)
}

func (g *Gateway) ScheduleEvent(ctx context.Context, _ string) error {
	return g.launchTargetApp(ctx, CalendarApps)
}

func (g *Gateway) SetAlarm(ctx context.Context, _ string) error {
	return g.launchTargetApp(ctx, ClockApps)
}

func (g *Gateway) Timer(ctx context.Context, _ string) error {
	return g.launchTargetApp(ctx, ClockApps)
}
