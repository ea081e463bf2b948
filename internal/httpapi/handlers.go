// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/BCSkins-com/bcskins-inspect/internal/config"
	"github.com/BCSkins-com/bcskins-inspect/internal/coordinator"
	"github.com/BCSkins-com/bcskins-inspect/internal/errs"
	"github.com/BCSkins-com/bcskins-inspect/internal/formatter"
	"github.com/BCSkins-com/bcskins-inspect/internal/logging"
	"github.com/BCSkins-com/bcskins-inspect/internal/models"
	"github.com/BCSkins-com/bcskins-inspect/internal/parser"
)

// Inspector is the coordinator contract the handlers drive.
type Inspector interface {
	InspectItem(ctx context.Context, d models.Descriptor) (coordinator.Outcome, error)
}

// FleetAdmin is the slice of the worker manager the stats and admin
// endpoints need.
type FleetAdmin interface {
	Stats() models.FleetMetrics
	ReconnectBot(username string)
	ReconnectAll()
}

// Handler carries the collaborators behind the HTTP surface.
type Handler struct {
	cfg       *config.Config
	inspector Inspector
	fleet     FleetAdmin
}

// NewHandler builds the handler set.
func NewHandler(cfg *config.Config, inspector Inspector, fleet FleetAdmin) *Handler {
	return &Handler{cfg: cfg, inspector: inspector, fleet: fleet}
}

// Inspect serves GET /, /inspect, and /float: either ?url=<inspect link>
// or ?s=&a=&d=&m=, plus the refresh/reply/lowPriority flags.
func (h *Handler) Inspect(w http.ResponseWriter, r *http.Request) {
	d, err := descriptorFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.inspector.InspectItem(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}

	if outcome.Accepted {
		writeJSON(w, http.StatusOK, formatter.Accepted{Accepted: true, AssetID: outcome.AssetID})
		return
	}
	writeJSON(w, http.StatusOK, outcome.Item)
}

// Stats serves GET /stats with the merged fleet snapshot.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.fleet.Stats())
}

func descriptorFromQuery(r *http.Request) (models.Descriptor, error) {
	q := r.URL.Query()

	var d models.Descriptor
	if link := q.Get("url"); link != "" {
		parsed, err := parser.ParseLink(link)
		if err != nil {
			return models.Descriptor{}, err
		}
		d = parsed
	} else {
		var err error
		if d.S, err = parseID(q.Get("s")); err != nil {
			return models.Descriptor{}, badParam("s", err)
		}
		if d.A, err = parseID(q.Get("a")); err != nil {
			return models.Descriptor{}, badParam("a", err)
		}
		if d.D, err = parseID(q.Get("d")); err != nil {
			return models.Descriptor{}, badParam("d", err)
		}
		if d.M, err = parseID(q.Get("m")); err != nil {
			return models.Descriptor{}, badParam("m", err)
		}
		if err := parser.Validate(d); err != nil {
			return models.Descriptor{}, err
		}
	}

	d.Refresh = boolParam(q.Get("refresh"), false)
	d.Reply = boolParam(q.Get("reply"), true)
	d.LowPriority = boolParam(q.Get("lowPriority"), false)
	return d, nil
}

func parseID(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func boolParam(s string, def bool) bool {
	if s == "" {
		return def
	}
	switch s {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func badParam(name string, err error) error {
	return errs.New(errs.KindBadDescriptor, "invalid "+name+" parameter: "+err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Response encoding failed")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := errs.Kind("Internal")

	var ge *errs.Error
	if errors.As(err, &ge) {
		kind = ge.Kind
		status = errs.StatusCode(ge.Kind)
	}

	writeJSON(w, status, map[string]string{
		"error": string(kind),
		"msg":   err.Error(),
	})
}
