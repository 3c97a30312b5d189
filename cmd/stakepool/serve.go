// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/stakepool/api"
	"github.com/vechain/stakepool/api/audit"
	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/metrics"
	"github.com/vechain/stakepool/stakepool"
)

var logger = log.WithContext("pkg", "cmd")

func serveAction(ctx *cli.Context) error {
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}
	return withPool(ctx, func(e *env, p *stakepool.Pool) error {
		var journal audit.Journal
		if e.audit != nil {
			journal = e.audit
		}
		handler, err := api.New(p, journal, api.Options{
			AllowedOrigins: ctx.String(apiCorsFlag.Name),
			EnableMetrics:  ctx.Bool(enableMetricsFlag.Name),
			LogsLimit:      ctx.Uint64(apiLogsLimitFlag.Name),
		})
		if err != nil {
			return err
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, gctx := errgroup.WithContext(runCtx)

		g.Go(func() error {
			return serveHTTP(gctx, "api", ctx.String(apiAddrFlag.Name), handler)
		})
		if h := metrics.HTTPHandler(); h != nil {
			g.Go(func() error {
				return serveHTTP(gctx, "metrics", ctx.String(metricsAddrFlag.Name), h)
			})
		}
		if interval := ctx.Duration(crankFlag.Name); interval > 0 {
			g.Go(func() error {
				return crank(gctx, e, p, interval)
			})
		}
		return g.Wait()
	})
}

func serveHTTP(ctx context.Context, name, addr string, handler http.Handler) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", name)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("serving", "service", name, "addr", "http://"+listener.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// crank drives the simulated chain: every tick starts a new epoch and runs
// a full pool update, persisting the chain with it.
func crank(ctx context.Context, e *env, p *stakepool.Pool, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			epoch := e.chain.AdvanceEpoch(1)
			if _, err := p.UpdateAll(ctx, true); err != nil {
				logger.Warn("epoch update failed", "epoch", epoch, "error", err)
				continue
			}
			if err := e.store.Flush(); err != nil {
				return err
			}
		}
	}
}
