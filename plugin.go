package usermgr

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"

	"github.com/oarkflow/usermgr/pkg/http/responses"
	"github.com/oarkflow/usermgr/pkg/http/routes"
	"github.com/oarkflow/usermgr/pkg/libs"
	"github.com/oarkflow/usermgr/pkg/utils"
)

//go:embed views
var Assets embed.FS

type Plugin struct {
	App     *fiber.App
	Prefix  string
	Manager *libs.Manager
	Engine  *html.Engine
	// Reload re-parses templates on every render, for development.
	Reload bool
}

type Option func(*Plugin)

func WithApp(app *fiber.App) Option {
	return func(p *Plugin) {
		p.App = app
	}
}

func WithPrefix(prefix string) Option {
	return func(p *Plugin) {
		p.Prefix = prefix
	}
}

func WithManager(m *libs.Manager) Option {
	return func(p *Plugin) {
		p.Manager = m
	}
}

func WithReload(reload bool) Option {
	return func(p *Plugin) {
		p.Reload = reload
	}
}

func NewPluginWithOptions(opts ...Option) *Plugin {
	p := &Plugin{Prefix: "/"}
	for _, opt := range opts {
		opt(p)
	}
	if p.Prefix == "" {
		p.Prefix = "/"
	}
	p.Engine = NewViewEngine(p.Reload, p.Prefix)
	return p
}

// NewViewEngine parses the embedded templates. Links in them point under
// prefix.
func NewViewEngine(reload bool, prefix string) *html.Engine {
	engine := html.NewFileSystem(http.FS(Assets), ".html")
	engine.Reload(reload)
	engine.AddFuncMap(map[string]any{
		"unescape": func(s string) template.HTML {
			return template.HTML(s)
		},
		"safeURL": func(s string) template.URL {
			return template.URL(s)
		},
		"uris": func() map[string]string {
			return utils.GetURIs(prefix)
		},
	})
	return engine
}

func (p *Plugin) Register() error {
	if p.App == nil {
		return errors.New("usermgr: plugin needs a fiber app")
	}
	if p.Manager == nil {
		return errors.New("usermgr: plugin needs a manager")
	}
	routes.Setup(p.Prefix, p.App, p.Manager, responses.NewView(p.Engine, utils.Layout, p.Prefix))
	return nil
}

func (p *Plugin) Name() string {
	return "UserManager"
}

func (p *Plugin) Close() error {
	if p.Manager == nil {
		return nil
	}
	return p.Manager.Close()
}
