package api

import (
	"crypto/md5" //nolint:gosec // Weak ETag fingerprint, not a security boundary
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sqoia-dev/panel.sh/internal/asset"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/mqtt"
)

// defaultPageSize is used when pagination is requested without page_size.
const defaultPageSize = 50

// assetPayload is the wire shape of an asset: the stored record plus the
// computed is_active flag.
type assetPayload struct {
	asset.Asset
	IsActive bool `json:"is_active"`
}

func (s *Server) assetToPayload(a asset.Asset, now time.Time) assetPayload {
	return assetPayload{Asset: a, IsActive: a.IsActive(now)}
}

// createAssetRequest is the accepted body for POST /assets.
type createAssetRequest struct {
	AssetID        string  `json:"asset_id"`
	Name           string  `json:"name"`
	URI            string  `json:"uri"`
	Mimetype       string  `json:"mimetype"`
	StartDate      *string `json:"start_date"`
	EndDate        *string `json:"end_date"`
	Duration       *int    `json:"duration"`
	IsEnabled      bool    `json:"is_enabled"`
	IsProcessing   bool    `json:"is_processing"`
	NoCache        bool    `json:"nocache"`
	SkipAssetCheck bool    `json:"skip_asset_check"`
	PlayOrder      int     `json:"play_order"`
}

// handleListAssets returns the asset list with optional filters, pagination,
// and weak ETag support.
//
// Query parameters:
//   - is_enabled, is_active: boolean filters (1/true/yes/on, 0/false/no/off)
//   - search: case-insensitive substring match on name or uri
//   - page, page_size: optional pagination envelope
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	all, err := s.assets.List(r.Context())
	if err != nil {
		s.writeAssetError(w, err)
		return
	}

	isEnabled, err := parseBoolQueryParam(r.URL.Query().Get("is_enabled"), "is_enabled")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	isActive, err := parseBoolQueryParam(r.URL.Query().Get("is_active"), "is_active")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	search := strings.ToLower(r.URL.Query().Get("search"))

	now := time.Now().UTC()
	filtered := make([]assetPayload, 0, len(all))
	for _, a := range all {
		if isEnabled != nil && a.IsEnabled != *isEnabled {
			continue
		}
		if isActive != nil && a.IsActive(now) != *isActive {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.Name), search) &&
			!strings.Contains(strings.ToLower(a.URI), search) {
			continue
		}
		filtered = append(filtered, s.assetToPayload(a, now))
	}

	var payload any = filtered

	if pageParam, sizeParam := r.URL.Query().Get("page"), r.URL.Query().Get("page_size"); pageParam != "" || sizeParam != "" {
		page, pageSize, err := parsePagination(pageParam, sizeParam)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}

		start := (page - 1) * pageSize
		end := start + pageSize
		if start > len(filtered) {
			start = len(filtered)
		}
		if end > len(filtered) {
			end = len(filtered)
		}

		payload = map[string]any{
			"count":     len(filtered),
			"page":      page,
			"page_size": pageSize,
			"results":   filtered[start:end],
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		writeInternalError(w, "encoding response failed")
		return
	}

	etag := weakETag(body)
	w.Header().Set("ETag", etag)
	if matchesIfNoneMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck // Best-effort write to response
}

// handleCreateAsset creates an asset and returns the committed record.
// Non-video assets with no duration get the settings default.
func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	startDate, err := parseOptionalTime(req.StartDate, "start_date")
	if err != nil {
		writeValidationError(w, err)
		return
	}
	endDate, err := parseOptionalTime(req.EndDate, "end_date")
	if err != nil {
		writeValidationError(w, err)
		return
	}

	duration := 0
	if req.Duration != nil {
		duration = *req.Duration
	} else if asset.Mimetype(req.Mimetype) != asset.MimetypeVideo {
		duration = s.settings.Get().DefaultDuration
	}

	created, createErr := s.assets.Create(r.Context(), asset.CreateInput{
		ID:             req.AssetID,
		Name:           req.Name,
		URI:            req.URI,
		Mimetype:       asset.Mimetype(req.Mimetype),
		StartDate:      startDate,
		EndDate:        endDate,
		Duration:       duration,
		IsEnabled:      req.IsEnabled,
		IsProcessing:   req.IsProcessing,
		NoCache:        req.NoCache,
		SkipAssetCheck: req.SkipAssetCheck,
		PlayOrder:      req.PlayOrder,
	})
	if createErr != nil {
		s.writeAssetError(w, createErr)
		return
	}

	s.notifyAssetsChanged()
	writeJSON(w, http.StatusCreated, s.assetToPayload(*created, time.Now().UTC()))
}

// handleGetAsset returns a single asset.
func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, err := s.assets.Get(r.Context(), chi.URLParam(r, "asset_id"))
	if err != nil {
		s.writeAssetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.assetToPayload(*a, time.Now().UTC()))
}

// handleUpdateAsset applies a partial (PATCH) or full (PUT) update.
//
// Both methods share the same semantics: identity and media fields
// (asset_id, uri, mimetype, is_processing) present in the body are dropped
// without error, and duration is only applied to video assets.
func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	in, verr := decodeUpdateInput(r)
	if verr != nil {
		writeValidationError(w, verr)
		return
	}

	updated, err := s.assets.Update(r.Context(), chi.URLParam(r, "asset_id"), in)
	if err != nil {
		s.writeAssetError(w, err)
		return
	}

	s.notifyAssetsChanged()
	writeJSON(w, http.StatusOK, s.assetToPayload(*updated, time.Now().UTC()))
}

// handleDeleteAsset removes an asset and re-packs the active ordering.
func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := s.assets.Delete(r.Context(), chi.URLParam(r, "asset_id")); err != nil {
		s.writeAssetError(w, err)
		return
	}

	s.notifyAssetsChanged()
	w.WriteHeader(http.StatusNoContent)
}

// playlistOrderRequest is the accepted body for POST /assets/order.
// ids holds comma-separated asset identifiers in the desired order.
type playlistOrderRequest struct {
	IDs string `json:"ids"`
}

// handleSetPlaylistOrder replaces the active ordering.
// Identifiers that are not currently active are dropped.
func (s *Server) handleSetPlaylistOrder(w http.ResponseWriter, r *http.Request) {
	var req playlistOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var ids []string
	for _, id := range strings.Split(req.IDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	active, err := s.assets.SetOrder(r.Context(), ids)
	if err != nil {
		s.writeAssetError(w, err)
		return
	}

	now := time.Now().UTC()
	payload := make([]assetPayload, len(active))
	for i, a := range active {
		payload[i] = s.assetToPayload(a, now)
	}

	s.notifyAssetsChanged()
	writeJSON(w, http.StatusOK, payload)
}

// viewerCommands are the playback controls accepted by /assets/control.
var viewerCommands = map[string]bool{
	"next":     true,
	"previous": true,
}

// handleAssetsControl forwards a playback command to the playback engine.
// Commands are next, previous, or asset&<asset_id> to jump to an asset.
func (s *Server) handleAssetsControl(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")

	if !viewerCommands[command] && !strings.HasPrefix(command, "asset&") {
		writeBadRequest(w, fmt.Sprintf("unknown command %q", command))
		return
	}

	if s.bus == nil {
		writeServiceUnavailable(w, "message bus unavailable")
		return
	}

	topic := mqtt.Topics{}.ViewerControl()
	if err := s.bus.Publish(topic, []byte(command), 1, false); err != nil {
		s.logger.Error("publishing viewer command failed", "command", command, "error", err)
		writeServiceUnavailable(w, "publishing command failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Asset switched",
	})
}

// notifyAssetsChanged pushes an assets_changed event to WebSocket clients
// and the playback engine.
func (s *Server) notifyAssetsChanged() {
	if s.hub != nil {
		s.hub.Broadcast(ChannelAssetsChanged, nil)
	}
	if s.bus != nil {
		topic := mqtt.Topics{}.ViewerEvent(ChannelAssetsChanged)
		if err := s.bus.Publish(topic, []byte(`{}`), 0, false); err != nil {
			s.logger.Warn("publishing assets_changed failed", "error", err)
		}
	}
}

// decodeUpdateInput builds an asset.UpdateInput from a request body.
//
// The body is decoded field-by-field so that a null start_date/end_date can
// be distinguished from an absent one (null clears the bound). Unknown and
// immutable fields are ignored.
func decodeUpdateInput(r *http.Request) (asset.UpdateInput, *asset.ValidationError) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		verr := asset.NewValidationError()
		verr.Add("body", "invalid JSON body")
		return asset.UpdateInput{}, verr
	}

	var in asset.UpdateInput
	verr := asset.NewValidationError()

	if v, ok := raw["name"]; ok {
		var name string
		if err := json.Unmarshal(v, &name); err != nil {
			verr.Add("name", "must be a string")
		} else {
			in.Name = &name
		}
	}
	if v, ok := raw["is_enabled"]; ok {
		var enabled bool
		if err := json.Unmarshal(v, &enabled); err != nil {
			verr.Add("is_enabled", "must be a boolean")
		} else {
			in.IsEnabled = &enabled
		}
	}
	if v, ok := raw["nocache"]; ok {
		var nocache bool
		if err := json.Unmarshal(v, &nocache); err != nil {
			verr.Add("nocache", "must be a boolean")
		} else {
			in.NoCache = &nocache
		}
	}
	if v, ok := raw["skip_asset_check"]; ok {
		var skip bool
		if err := json.Unmarshal(v, &skip); err != nil {
			verr.Add("skip_asset_check", "must be a boolean")
		} else {
			in.SkipAssetCheck = &skip
		}
	}
	if v, ok := raw["duration"]; ok {
		var duration int
		if err := json.Unmarshal(v, &duration); err != nil {
			verr.Add("duration", "must be an integer")
		} else {
			in.Duration = &duration
		}
	}
	if v, ok := raw["play_order"]; ok {
		var playOrder int
		if err := json.Unmarshal(v, &playOrder); err != nil {
			verr.Add("play_order", "must be an integer")
		} else {
			in.PlayOrder = &playOrder
		}
	}
	if v, ok := raw["start_date"]; ok {
		in.StartDateSet = true
		t, err := parseNullableTime(v, "start_date")
		if err != nil {
			verr.Merge(err)
		} else {
			in.StartDate = t
		}
	}
	if v, ok := raw["end_date"]; ok {
		in.EndDateSet = true
		t, err := parseNullableTime(v, "end_date")
		if err != nil {
			verr.Merge(err)
		} else {
			in.EndDate = t
		}
	}

	if !verr.Empty() {
		return asset.UpdateInput{}, verr
	}
	return in, nil
}

// parseNullableTime parses a JSON value into an optional UTC timestamp.
// JSON null yields nil (the bound is cleared).
func parseNullableTime(v json.RawMessage, field string) (*time.Time, *asset.ValidationError) {
	var raw *string
	if err := json.Unmarshal(v, &raw); err != nil {
		verr := asset.NewValidationError()
		verr.Add(field, "must be an RFC 3339 timestamp or null")
		return nil, verr
	}
	return parseOptionalTime(raw, field)
}

// parseOptionalTime parses an optional RFC 3339 timestamp string.
func parseOptionalTime(raw *string, field string) (*time.Time, *asset.ValidationError) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		verr := asset.NewValidationError()
		verr.Add(field, fmt.Sprintf("invalid timestamp %q", *raw))
		return nil, verr
	}
	utc := t.UTC()
	return &utc, nil
}

// parseBoolQueryParam parses a boolean query parameter.
// Accepted truthy values: 1, true, yes, on; falsy: 0, false, no, off.
func parseBoolQueryParam(value, name string) (*bool, error) {
	if value == "" {
		return nil, nil
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		v := true
		return &v, nil
	case "0", "false", "no", "off":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("invalid boolean value for %q", name)
	}
}

// parsePagination validates the page/page_size query parameters.
func parsePagination(pageParam, sizeParam string) (page, pageSize int, err error) {
	page, pageSize = 1, defaultPageSize

	if pageParam != "" {
		if page, err = strconv.Atoi(pageParam); err != nil {
			return 0, 0, fmt.Errorf("pagination parameters must be integers")
		}
	}
	if sizeParam != "" {
		if pageSize, err = strconv.Atoi(sizeParam); err != nil {
			return 0, 0, fmt.Errorf("pagination parameters must be integers")
		}
	}
	if page < 1 || pageSize < 1 {
		return 0, 0, fmt.Errorf("pagination parameters must be greater than 0")
	}
	return page, pageSize, nil
}

// weakETag fingerprints a response body as a weak entity tag.
func weakETag(body []byte) string {
	digest := md5.Sum(body) //nolint:gosec // Cache validator, not a security boundary
	return fmt.Sprintf(`W/"%x"`, digest)
}

// matchesIfNoneMatch reports whether any candidate in the If-None-Match
// header equals the given ETag.
func matchesIfNoneMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimSpace(candidate) == etag {
			return true
		}
	}
	return false
}
