// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/vechain/stakepool/api/audit"
	"github.com/vechain/stakepool/api/pool"
	"github.com/vechain/stakepool/log"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins string
	EnableMetrics  bool
	LogsLimit      uint64
	CacheSize      int
}

// New returns the api router. The audit endpoints are mounted only with
// a journal.
func New(p pool.Reader, journal audit.Journal, opts Options) (http.HandlerFunc, error) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}
	if opts.LogsLimit == 0 {
		opts.LogsLimit = 1000
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}

	router := mux.NewRouter()

	pool.New(p).
		Mount(router, "/pool")
	if journal != nil {
		a, err := audit.New(journal, func() uint64 { return p.Header().LastUpdateEpoch }, opts.LogsLimit, opts.CacheSize)
		if err != nil {
			return nil, err
		}
		a.Mount(router, "/audit")
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	logger.Debug("api router created", "origins", origins, "audit", journal != nil)
	return handler.ServeHTTP, nil
}
