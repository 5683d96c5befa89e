package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// apiBase prefixes every versioned endpoint
const apiBase = "/api/v1"

// routeTable declares the API before it is mounted, so the full endpoint
// list can be inspected without serving requests.
type routeTable struct {
	base   string
	groups []*routeGroup
}

type routeGroup struct {
	prefix string
	routes []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

func newRouteTable(base string) *routeTable {
	return &routeTable{base: base}
}

// group starts the routes of one resource
func (t *routeTable) group(prefix string) *routeGroup {
	g := &routeGroup{prefix: prefix}
	t.groups = append(t.groups, g)
	return g
}

func (g *routeGroup) handle(method, relativePath string, handlers ...gin.HandlerFunc) {
	g.routes = append(g.routes, route{method: method, path: relativePath, handlers: handlers})
}

func (g *routeGroup) get(p string, h ...gin.HandlerFunc)    { g.handle(http.MethodGet, p, h...) }
func (g *routeGroup) post(p string, h ...gin.HandlerFunc)   { g.handle(http.MethodPost, p, h...) }
func (g *routeGroup) put(p string, h ...gin.HandlerFunc)    { g.handle(http.MethodPut, p, h...) }
func (g *routeGroup) delete(p string, h ...gin.HandlerFunc) { g.handle(http.MethodDelete, p, h...) }

// mount registers the table on engine. mw runs for table routes only;
// anything registered on the engine directly, like /health, skips it.
func (t *routeTable) mount(engine *gin.Engine, mw ...gin.HandlerFunc) {
	api := engine.Group(t.base, mw...)
	for _, g := range t.groups {
		rg := api.Group(g.prefix)
		for _, r := range g.routes {
			rg.Handle(r.method, r.path, r.handlers...)
		}
	}
}

// endpoints lists every route as "METHOD /full/path" in declaration order
func (t *routeTable) endpoints() []string {
	var out []string
	for _, g := range t.groups {
		for _, r := range g.routes {
			full := path.Join(t.base, g.prefix, r.path)
			out = append(out, r.method+" "+full)
		}
	}
	return out
}
