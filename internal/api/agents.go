package api

import "net/http"

func (h *handler) listAgents(w http.ResponseWriter, r *http.Request) {
	if h.agents == nil {
		jsonError(w, http.StatusServiceUnavailable, "agent registry unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, h.agents.List())
}

func (h *handler) getAgent(w http.ResponseWriter, r *http.Request) {
	if h.agents == nil {
		jsonError(w, http.StatusServiceUnavailable, "agent registry unavailable")
		return
	}
	profile := h.agents.Get(r.PathValue("id"))
	if profile == nil {
		jsonError(w, http.StatusNotFound, "agent profile not found")
		return
	}
	jsonResponse(w, http.StatusOK, profile)
}

func (h *handler) reloadAgents(w http.ResponseWriter, r *http.Request) {
	if h.agents == nil {
		jsonError(w, http.StatusServiceUnavailable, "agent registry unavailable")
		return
	}
	if err := h.agents.Reload(); err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, h.agents.List())
}
