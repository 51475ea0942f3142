package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/yama-shu/gourmet-battle/internal/database"
)

// HighScoreHandler serves the single-player high score. GET reads the stored
// scalar for a player name; POST submits a finished round's score and keeps
// whichever is higher.
func HighScoreHandler(logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			name := r.URL.Query().Get("name")
			if name == "" {
				writeJSONError(w, http.StatusBadRequest, "name is required")
				return
			}
			score, err := database.GetHighScore(r.Context(), name)
			if err != nil {
				logger.WithError(err).Error("high score read failed")
				writeJSONError(w, http.StatusInternalServerError, "failed to read high score")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"name":  name,
				"score": score,
			})

		case http.MethodPost:
			var body struct {
				Name  string `json:"name"`
				Score int    `json:"score"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
				writeJSONError(w, http.StatusBadRequest, "name and score are required")
				return
			}
			if body.Score < 0 {
				writeJSONError(w, http.StatusBadRequest, "score must not be negative")
				return
			}
			updated, err := database.SaveHighScore(r.Context(), body.Name, body.Score)
			if err != nil {
				logger.WithError(err).Error("high score write failed")
				writeJSONError(w, http.StatusInternalServerError, "failed to save high score")
				return
			}
			best := body.Score
			if !updated {
				if stored, err := database.GetHighScore(r.Context(), body.Name); err == nil {
					best = stored
				}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"name":    body.Name,
				"score":   best,
				"updated": updated,
			})

		default:
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}
