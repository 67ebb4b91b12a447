package transport

import (
	"net/http"
	"strconv"
	"strings"

	"pipelinedag/internal/core/config"
	"pipelinedag/internal/shared/observability"
	"pipelinedag/internal/shared/util"

	"github.com/gobwas/glob"
)

// Methods advertised when allow_methods is "*".
var allMethods = []string{"DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT"}

type corsPolicy struct {
	anyOrigin   bool
	origins     []glob.Glob
	anyMethod   bool
	methods     []string
	anyHeader   bool
	headers     map[string]struct{}
	credentials bool
	maxAge      string
}

func newCORSPolicy(cfg config.CORS) (*corsPolicy, error) {
	p := &corsPolicy{
		credentials: cfg.AllowCredentials,
		headers:     make(map[string]struct{}),
	}

	for _, origin := range cfg.AllowOrigins {
		if origin == "*" {
			p.anyOrigin = true
			continue
		}
		g, err := glob.Compile(origin, '.')
		if err != nil {
			return nil, err
		}
		p.origins = append(p.origins, g)
	}

	for _, m := range cfg.AllowMethods {
		if m == "*" {
			p.anyMethod = true
			continue
		}
		p.methods = append(p.methods, strings.ToUpper(m))
	}
	if p.anyMethod {
		p.methods = allMethods
	}

	for _, h := range cfg.AllowHeaders {
		if h == "*" {
			p.anyHeader = true
			continue
		}
		p.headers[strings.ToLower(h)] = struct{}{}
	}

	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}
	return p, nil
}

func (p *corsPolicy) allowOrigin(origin string) bool {
	if p.anyOrigin {
		return true
	}
	origin = strings.TrimSuffix(origin, "/")
	for _, g := range p.origins {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

func (p *corsPolicy) allowMethod(method string) bool {
	if p.anyMethod {
		return true
	}
	for _, m := range p.methods {
		if m == strings.ToUpper(method) {
			return true
		}
	}
	return false
}

func (p *corsPolicy) allowHeaders(requested string) bool {
	if p.anyHeader || requested == "" {
		return true
	}
	for _, h := range strings.Split(requested, ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, ok := p.headers[h]; !ok {
			return false
		}
	}
	return true
}

func (p *corsPolicy) setOriginHeaders(h http.Header, origin string) {
	if p.anyOrigin && !p.credentials {
		h.Set("Access-Control-Allow-Origin", "*")
	} else {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
	}
	if p.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

// cors answers preflight requests itself and decorates simple requests from
// allowed origins. Requests from other origins are served without CORS
// headers, which leaves enforcement to the browser.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		policy := s.corsPolicy.Load()
		reqMethod := r.Header.Get("Access-Control-Request-Method")
		if r.Method == http.MethodOptions && reqMethod != "" {
			s.preflight(w, r, policy, origin, reqMethod)
			return
		}

		if policy.allowOrigin(origin) {
			policy.setOriginHeaders(w.Header(), origin)
		} else {
			observability.CORSRejectedTotal.Inc()
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) preflight(w http.ResponseWriter, r *http.Request, policy *corsPolicy, origin, reqMethod string) {
	reqHeaders := r.Header.Get("Access-Control-Request-Headers")

	var failures []string
	if !policy.allowOrigin(origin) {
		failures = append(failures, "origin")
	}
	if !policy.allowMethod(reqMethod) {
		failures = append(failures, "method")
	}
	if !policy.allowHeaders(reqHeaders) {
		failures = append(failures, "headers")
	}

	h := w.Header()
	h.Add("Vary", "Origin")
	if len(failures) > 0 {
		observability.CORSRejectedTotal.Inc()
		h.Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Disallowed CORS " + strings.Join(failures, ", ")))
		return
	}

	policy.setOriginHeaders(h, origin)
	h.Set("Access-Control-Allow-Methods", strings.Join(policy.methods, ", "))
	if policy.anyHeader && reqHeaders != "" {
		h.Set("Access-Control-Allow-Headers", reqHeaders)
	} else if len(policy.headers) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(util.SortedStringKeys(policy.headers), ", "))
	}
	if policy.maxAge != "" {
		h.Set("Access-Control-Max-Age", policy.maxAge)
	}
	h.Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
