package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"streetwise-crawler/proxy"
)

// ProxyStatsHandler returns the pool state
func (s *Server) ProxyStatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pool.Stats())
}

// AddProxyHandler adds a proxy given as {"proxy": "[scheme://][user:pass@]host:port"}
func (s *Server) AddProxyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Proxy string `json:"proxy"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON")
		return
	}

	p, err := proxy.ParseProxy(req.Proxy)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PROXY", err.Error())
		return
	}
	if err := s.pool.AddProxy(p); err != nil {
		if errors.Is(err, proxy.ErrDuplicate) {
			writeError(w, http.StatusConflict, "DUPLICATE_PROXY", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_PROXY", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// RemoveProxyHandler removes the proxy named by ?server=host:port
func (s *Server) RemoveProxyHandler(w http.ResponseWriter, r *http.Request) {
	server := r.URL.Query().Get("server")
	if server == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "server is required")
		return
	}
	if err := s.pool.RemoveProxy(server); err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetProxiesHandler marks every proxy healthy again
func (s *Server) ResetProxiesHandler(w http.ResponseWriter, r *http.Request) {
	s.pool.ResetHealth()
	writeJSON(w, http.StatusOK, s.pool.Stats())
}

// ProxyStrategyHandler switches the rotation strategy
func (s *Server) ProxyStrategyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Strategy string `json:"strategy"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON")
		return
	}
	if err := s.pool.SetRotationStrategy(proxy.RotationStrategy(req.Strategy)); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_STRATEGY", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"strategy": s.pool.Stats().Strategy})
}

// throttleBody is the JSON form of proxy.ThrottleConfig with delays in
// milliseconds.
type throttleBody struct {
	Enabled           bool  `json:"enabled"`
	MinDelay          int64 `json:"minDelay"`
	MaxDelay          int64 `json:"maxDelay"`
	RequestsPerMinute int   `json:"requestsPerMinute"`
}

func newThrottleBody(cfg proxy.ThrottleConfig) throttleBody {
	return throttleBody{
		Enabled:           cfg.Enabled,
		MinDelay:          cfg.MinDelay.Milliseconds(),
		MaxDelay:          cfg.MaxDelay.Milliseconds(),
		RequestsPerMinute: cfg.RequestsPerMinute,
	}
}

// ThrottleHandler returns the throttle configuration
func (s *Server) ThrottleHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newThrottleBody(s.throttler.Config()))
}

// ConfigureThrottleHandler replaces the throttle configuration
func (s *Server) ConfigureThrottleHandler(w http.ResponseWriter, r *http.Request) {
	body := newThrottleBody(s.throttler.Config())
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON")
		return
	}

	cfg := proxy.ThrottleConfig{
		Enabled:           body.Enabled,
		MinDelay:          time.Duration(body.MinDelay) * time.Millisecond,
		MaxDelay:          time.Duration(body.MaxDelay) * time.Millisecond,
		RequestsPerMinute: body.RequestsPerMinute,
	}
	if err := s.throttler.Configure(cfg); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_THROTTLE", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newThrottleBody(s.throttler.Config()))
}
