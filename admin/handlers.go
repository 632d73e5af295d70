// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vechain/scoreloop/log"
)

// LogLevel is the runtime adjustable level of the root log handler.
type LogLevel interface {
	Level() slog.Level
	SetLevel(slog.Level)
}

// HealthFunc reports the node status and whether it is healthy.
type HealthFunc func() (status any, healthy bool)

type logLevelRequest struct {
	Level string `json:"level"`
}

type logLevelResponse struct {
	CurrentLevel string `json:"currentLevel"`
}

type errorResponse struct {
	ErrorCode    int    `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{ErrorCode: code, ErrorMessage: msg})
}

func getLogLevelHandler(level LogLevel) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, logLevelResponse{CurrentLevel: log.LevelString(level.Level())})
	}
}

func postLogLevelHandler(level LogLevel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logLevelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		lvl, err := log.ParseLevel(req.Level)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid verbosity level")
			return
		}
		level.SetLevel(lvl)
		logger.Info("log level changed", "level", log.LevelString(lvl))
		writeJSON(w, http.StatusOK, logLevelResponse{CurrentLevel: log.LevelString(level.Level())})
	}
}

func healthHandler(health HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status, healthy := health()
		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}
