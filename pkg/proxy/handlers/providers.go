package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"mercator-hq/switchboard/pkg/proxy"
	"mercator-hq/switchboard/pkg/proxy/types"
	"mercator-hq/switchboard/pkg/telemetry/logging"
)

// ProvidersHandler serves GET /v1/providers: every provider known to the
// settings layer or the adapter registry with its resolved settings.
type ProvidersHandler struct {
	Settings SettingsView
	Adapters AdapterView
	Logger   *slog.Logger
}

// NewProvidersHandler creates a provider listing handler.
func NewProvidersHandler(s SettingsView, a AdapterView, logger *slog.Logger) *ProvidersHandler {
	return &ProvidersHandler{Settings: s, Adapters: a, Logger: logging.Component(logger, "providers")}
}

// ServeHTTP implements http.Handler.
func (h *ProvidersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, h.Logger, r, types.NewErrorResponse(
			"Method not allowed. Use GET instead.",
			types.ErrorTypeMethodNotAllowed,
			"method",
			"method_not_allowed",
		))
		return
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, ListProviders(r.Context(), h.Settings, h.Adapters)); err != nil {
		h.Logger.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

// ListProviders returns the sorted union of providers known to s and a.
func ListProviders(ctx context.Context, s SettingsView, a AdapterView) []types.ProviderInfo {
	seen := make(map[string]struct{})
	for _, name := range s.Providers(ctx) {
		seen[name] = struct{}{}
	}
	for _, name := range a.Names() {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.ProviderInfo, 0, len(names))
	for _, name := range names {
		eff := s.Effective(ctx, name, nil)
		info := types.ProviderInfo{
			Name:         name,
			Enabled:      eff.Found() && eff.Descriptor.Enabled,
			DefaultModel: eff.Descriptor.DefaultModel,
			MaxOutputCap: eff.Descriptor.MaxOutputCap,
			Source:       eff.Source,
		}
		if adapter, err := a.Get(name); err == nil {
			info.Type = adapter.Type()
			info.HasCredentials = adapter.HasCredentials()
		}
		out = append(out, info)
	}
	return out
}
