// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/co"
	"github.com/vechain/scoreloop/log"
	"github.com/vechain/scoreloop/metrics"
)

var logger = log.WithContext("pkg", "admin")

// HTTPHandler builds the admin router. A nil health func omits the health endpoint.
func HTTPHandler(level LogLevel, health HealthFunc) http.Handler {
	router := mux.NewRouter()
	sub := router.PathPrefix("/admin").Subrouter()
	sub.HandleFunc("/loglevel", getLogLevelHandler(level)).Methods(http.MethodGet)
	sub.HandleFunc("/loglevel", postLogLevelHandler(level)).Methods(http.MethodPost)
	if health != nil {
		sub.HandleFunc("/health", healthHandler(health)).Methods(http.MethodGet)
	}
	if h := metrics.HTTPHandler(); h != nil {
		router.Handle("/metrics", h)
	}
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return handlers.CompressHandler(router)
}

// StartServer serves the admin api at addr. It returns the base url and the func to stop it.
func StartServer(addr string, level LogLevel, health HealthFunc) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen admin API addr [%v]", addr)
	}

	srv := &http.Server{
		Handler:           HTTPHandler(level, health),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
	}
	var goes co.Goes
	goes.Go(func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Warn("admin server stopped", "err", err)
		}
	})
	return "http://" + listener.Addr().String() + "/admin", func() {
		srv.Close()
		goes.Wait()
	}, nil
}
