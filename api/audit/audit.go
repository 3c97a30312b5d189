// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/api/utils"
	"github.com/vechain/stakepool/auditdb"
	"github.com/vechain/stakepool/cache"
	"github.com/vechain/stakepool/pubkey"
)

// Journal is the queryable audit journal.
type Journal interface {
	FilterReconciles(ctx context.Context, filter *auditdb.Filter) ([]*auditdb.Reconcile, error)
	FilterTotals(ctx context.Context, filter *auditdb.Filter) ([]*auditdb.Totals, error)
}

// Epochs tells the last epoch the pool was updated in. Records of earlier
// epochs never change.
type Epochs func() uint64

// Epoch is everything journaled for one epoch.
type Epoch struct {
	Epoch      uint64               `json:"epoch"`
	Reconciles []*auditdb.Reconcile `json:"reconciles"`
	Totals     []*auditdb.Totals    `json:"totals"`
}

type Audit struct {
	journal Journal
	current Epochs
	limit   uint64
	epochs  *cache.LRU[uint64, *Epoch]
}

// New creates the audit endpoints. limit bounds the records of one query.
func New(journal Journal, current Epochs, limit uint64, cacheSize int) (*Audit, error) {
	epochs, err := cache.NewLRU[uint64, *Epoch](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Audit{journal, current, limit, epochs}, nil
}

func (a *Audit) parseFilter(req *http.Request) (*auditdb.Filter, error) {
	from, err := utils.ParseUint(req, "from", 0)
	if err != nil {
		return nil, err
	}
	to, err := utils.ParseUint(req, "to", 0)
	if err != nil {
		return nil, err
	}
	offset, err := utils.ParseUint(req, "offset", 0)
	if err != nil {
		return nil, err
	}
	limit, err := utils.ParseUint(req, "limit", a.limit)
	if err != nil {
		return nil, err
	}
	if limit > a.limit {
		return nil, utils.BadRequest(errors.Errorf("limit exceeds %d", a.limit))
	}

	filter := &auditdb.Filter{Options: &auditdb.Options{Offset: offset, Limit: limit}}
	// a range with To below From is open ended
	if req.URL.Query().Has("to") || from > 0 {
		filter.Range = &auditdb.Range{From: from, To: to}
	}
	if req.URL.Query().Get("order") == "desc" {
		filter.Order = auditdb.DESC
	}
	if s := req.URL.Query().Get("vote"); s != "" {
		vote, err := pubkey.Parse(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "vote"))
		}
		filter.Vote = &vote
	}
	return filter, nil
}

func (a *Audit) handleFilterReconciles(w http.ResponseWriter, req *http.Request) error {
	filter, err := a.parseFilter(req)
	if err != nil {
		return err
	}
	records, err := a.journal.FilterReconciles(req.Context(), filter)
	if err != nil {
		return err
	}
	if records == nil {
		records = []*auditdb.Reconcile{}
	}
	return utils.WriteJSON(w, records)
}

func (a *Audit) handleFilterTotals(w http.ResponseWriter, req *http.Request) error {
	filter, err := a.parseFilter(req)
	if err != nil {
		return err
	}
	records, err := a.journal.FilterTotals(req.Context(), filter)
	if err != nil {
		return err
	}
	if records == nil {
		records = []*auditdb.Totals{}
	}
	return utils.WriteJSON(w, records)
}

func (a *Audit) loadEpoch(ctx context.Context, epoch uint64) (*Epoch, error) {
	filter := &auditdb.Filter{Range: &auditdb.Range{From: epoch, To: epoch}}
	reconciles, err := a.journal.FilterReconciles(ctx, filter)
	if err != nil {
		return nil, err
	}
	totals, err := a.journal.FilterTotals(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := &Epoch{Epoch: epoch, Reconciles: reconciles, Totals: totals}
	if out.Reconciles == nil {
		out.Reconciles = []*auditdb.Reconcile{}
	}
	if out.Totals == nil {
		out.Totals = []*auditdb.Totals{}
	}
	return out, nil
}

func (a *Audit) handleGetEpoch(w http.ResponseWriter, req *http.Request) error {
	epoch, err := strconv.ParseUint(mux.Vars(req)["epoch"], 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "epoch"))
	}
	current := a.current()
	out, err := a.epochs.GetOrLoad(epoch,
		func(e uint64) (*Epoch, error) { return a.loadEpoch(req.Context(), e) },
		func(*Epoch) bool { return epoch < current },
	)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, out)
}

func (a *Audit) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/reconciles").
		Methods(http.MethodGet).
		Name("audit_filter_reconciles").
		HandlerFunc(utils.WrapHandlerFunc(a.handleFilterReconciles))
	sub.Path("/totals").
		Methods(http.MethodGet).
		Name("audit_filter_totals").
		HandlerFunc(utils.WrapHandlerFunc(a.handleFilterTotals))
	sub.Path("/epochs/{epoch}").
		Methods(http.MethodGet).
		Name("audit_get_epoch").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetEpoch))
}
