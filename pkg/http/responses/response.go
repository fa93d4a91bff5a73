package responses

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oarkflow/usermgr/pkg/utils"
)

// View renders templates from the plugin's own engine so the host app's
// views configuration does not matter.
type View struct {
	engine fiber.Views
	layout string
	prefix string
}

// NewView renders with engine. prefix is where the routes are mounted and
// is joined onto every redirect.
func NewView(engine fiber.Views, layout, prefix string) *View {
	return &View{engine: engine, layout: layout, prefix: prefix}
}

// URL returns path under the mount prefix.
func (v *View) URL(path string) string {
	return utils.JoinURI(v.prefix, path)
}

func (v *View) Render(c *fiber.Ctx, template string, data any, layouts ...string) error {
	if c == nil {
		return fiber.ErrBadRequest
	}
	if template == "" {
		return c.JSON(data)
	}
	layout := v.layout
	if len(layouts) > 0 {
		layout = layouts[0]
	}
	if layout != "" {
		layouts = []string{layout}
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	if v.engine == nil {
		return c.Render(template, data, layouts...)
	}
	return v.engine.Render(c.Response().BodyWriter(), template, data, layouts...)
}
