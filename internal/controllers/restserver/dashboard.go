package restserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/chrissnell/groundwatch/internal/dashboard"
)

// streamBuffer is how many views a slow event stream client may fall behind
// before further views are dropped for it.
const streamBuffer = 8

// GetDashboard returns the current dashboard view, computing it on first use
func (h *Handlers) GetDashboard(w http.ResponseWriter, req *http.Request) {
	view, ok := h.deps.Binding.View()
	if !ok {
		var err error
		view, err = h.deps.Binding.Reload(req.Context())
		if err != nil {
			h.writeError(w, req, err)
			return
		}
	}
	h.formatter.WriteResponse(w, req, view, nil)
}

// PostDashboard applies a batch of parameter changes as one update
func (h *Handlers) PostDashboard(w http.ResponseWriter, req *http.Request) {
	var body dashboardRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		h.writeError(w, req, badRequest(fmt.Errorf("decode request: %w", err)))
		return
	}
	if len(body.Events) == 0 {
		h.writeError(w, req, badRequest(errors.New("no parameter events given")))
		return
	}

	// Whether an event is acceptable does not depend on the current
	// parameters, so it can be checked before dispatching.
	current := h.deps.Binding.Params()
	for _, ev := range body.Events {
		if _, err := current.Apply(ev, h.deps.Binding.Input()); err != nil {
			h.writeError(w, req, badRequest(err))
			return
		}
	}

	view, err := h.deps.Binding.Dispatch(req.Context(), body.Events...)
	if err != nil {
		h.deps.Metrics.RecomputeErrors.WithLabelValues("dashboard").Inc()
		h.writeError(w, req, err)
		return
	}
	h.formatter.WriteResponse(w, req, view, nil)
}

// StreamDashboard sends every new dashboard view as a server-sent event
func (h *Handlers) StreamDashboard(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates := make(chan dashboard.View, streamBuffer)
	unsubscribe := h.deps.Binding.Subscribe(func(v dashboard.View) {
		select {
		case updates <- v:
		default:
			h.logger.Warnw("dropping dashboard update for slow client", "request_id", requestID(req))
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	if view, ok := h.deps.Binding.View(); ok {
		if err := writeEvent(w, view); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-req.Context().Done():
			return
		case <-h.ctx.Done():
			return
		case view := <-updates:
			if err := writeEvent(w, view); err != nil {
				h.logger.Debugw("event stream closed", "request_id", requestID(req), "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, view dashboard.View) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: view\ndata: %s\n\n", data)
	return err
}
