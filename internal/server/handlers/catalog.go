package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/agentstation/harvester/internal/server/cache"
	"github.com/agentstation/harvester/internal/server/response"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/logging"
)

// HandleCatalog handles GET /data.json. The rendered document is cached
// until the next harvest that changes records.
func (h *Handlers) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	if doc, ok := h.cache.Get(cache.CatalogKey); ok {
		writeCatalog(w, doc, "HIT")
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	catalog, errs := h.client.Export(ctx)
	rejected := 0
	for _, err := range errs {
		var persist *errors.PersistError
		if stderrors.As(err, &persist) {
			logger.Error().Err(err).Msg("Failed to list records for export")
			response.ServiceUnavailable(w, "Catalog store unavailable")
			return
		}
		rejected++
		logger.Warn().Err(err).Msg("Record rejected from export")
	}

	doc, err := json.Marshal(catalog)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	h.cache.Set(cache.CatalogKey, doc)

	logger.Debug().
		Int("datasets", len(catalog.Datasets)).
		Int("rejected", rejected).
		Msg("Catalog rendered")
	writeCatalog(w, doc, "MISS")
}

func writeCatalog(w http.ResponseWriter, doc []byte, cacheStatus string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cacheStatus)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
