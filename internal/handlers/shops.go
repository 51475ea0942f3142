package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/yama-shu/gourmet-battle/internal/shops"
)

// ShopSearchHandler proxies restaurant searches to the Hotpepper gourmet API
// and reshapes the response. A nil client means the server-side API key is
// not configured; every request then fails with a 500.
func ShopSearchHandler(logger *logrus.Logger, client *shops.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if client == nil {
			writeJSONError(w, http.StatusInternalServerError, "API key not configured")
			return
		}

		q := r.URL.Query()
		params := shops.SearchParams{
			Keyword: q.Get("keyword"),
			Genre:   q.Get("genre"),
			Lat:     q.Get("lat"),
			Lng:     q.Get("lng"),
			Range:   q.Get("range"),
		}
		if c := q.Get("count"); c != "" {
			n, err := strconv.Atoi(c)
			if err != nil || n < 1 {
				writeJSONError(w, http.StatusBadRequest, "count must be a positive integer")
				return
			}
			params.Count = n
		}

		if !params.HasCriteria() {
			writeJSONError(w, http.StatusBadRequest, "keyword, genre, or lat/lng is required")
			return
		}
		if params.Genre != "" && !shops.ValidGenre(params.Genre) {
			writeJSONError(w, http.StatusBadRequest, "unknown genre code")
			return
		}
		if (params.Lat == "") != (params.Lng == "") {
			writeJSONError(w, http.StatusBadRequest, "lat and lng must be provided together")
			return
		}

		result, err := client.Search(r.Context(), params)
		if err != nil {
			var statusErr *shops.StatusError
			switch {
			case errors.As(err, &statusErr):
				writeJSONError(w, statusErr.StatusCode, "Failed to fetch external API")
			case errors.Is(err, shops.ErrInvalidFormat):
				writeJSONError(w, http.StatusInternalServerError, "Invalid response format from Hotpepper API")
			default:
				logger.WithError(err).Error("shop search failed")
				writeJSONError(w, http.StatusInternalServerError, "Internal server error during fetch")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"shops": result,
		})
	}
}

// writeJSONError emits the proxy's {error: "..."} shape with the given status.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
