package server

import (
	"net/http"
	"strings"
)

// RouteDoc is one documented API route, served from /api/routes so the
// surface is discoverable without reading source.
type RouteDoc struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
	Summary string `json:"summary,omitempty"`
}

type routeRegistry struct {
	routes []RouteDoc
}

func (rr *routeRegistry) list() []RouteDoc {
	out := make([]RouteDoc, len(rr.routes))
	copy(out, rr.routes)
	return out
}

// handle registers h on the mux and records the route for /api/routes.
// methodAndPattern uses the "METHOD /path" mux form.
func (rr *routeRegistry) handle(mux *http.ServeMux, methodAndPattern, summary string, h http.HandlerFunc) {
	method, pattern, _ := strings.Cut(methodAndPattern, " ")
	rr.routes = append(rr.routes, RouteDoc{Method: method, Pattern: pattern, Summary: summary})
	mux.HandleFunc(methodAndPattern, h)
}
