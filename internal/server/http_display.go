package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// printBanner lists endpoints and the active protections on s.Out
func (s *Server) printBanner(srv *http.Server) {
	if s.Out == nil {
		return
	}
	scheme := "http"
	if srv.TLSConfig != nil {
		scheme = "https"
	}
	writeBanner(s.Out, s, scheme+"://"+srv.Addr)
}

func writeBanner(w io.Writer, s *Server, url string) {
	fmt.Fprintf(w, "Recruiter API on %s\n", url)
	fmt.Fprintln(w, "Endpoints:")
	for _, rt := range s.routes() {
		method, path, _ := strings.Cut(rt.pattern, " ")
		marker := ""
		if rt.public {
			marker = " (public)"
		}
		fmt.Fprintf(w, "  %-5s %-30s %s%s\n", method, path, rt.summary, marker)
	}

	if n := len(s.apiKeys); n > 0 {
		fmt.Fprintf(w, "API keys: %d accepted via X-API-Key or Authorization: Bearer\n", n)
	} else {
		fmt.Fprintln(w, "API keys: none configured, endpoints are open")
	}

	if s.MaxRequestSize > 0 {
		fmt.Fprintf(w, "Upload limit: %.1f MB\n", float64(s.MaxRequestSize)/(1<<20))
	} else {
		fmt.Fprintln(w, "Upload limit: none")
	}

	if rl := s.RateLimit; rl != nil && rl.Enabled {
		var keys []string
		if rl.ByAPIKey {
			keys = append(keys, "api key")
		}
		if rl.ByIP {
			keys = append(keys, "ip")
		}
		fmt.Fprintf(w, "Rate limit: %d/min, burst %d, keyed by %s\n",
			rl.RequestsPerMin, rl.BurstCapacity, strings.Join(keys, " then "))
	} else {
		fmt.Fprintln(w, "Rate limit: off")
	}
}
