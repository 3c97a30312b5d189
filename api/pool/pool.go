// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/api/utils"
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/stakepool/validator"
)

// Reader is the read side of a pool.
type Reader interface {
	Header() stakepool.Header
	Validators() []validator.Entry
	Validator(vote pubkey.Pubkey) (*validator.Entry, error)
	Addresses(e *validator.Entry) (stake, transient pubkey.Pubkey)
	ReserveBalance(ctx context.Context) (uint64, error)
}

type Pool struct {
	pool Reader
}

func New(pool Reader) *Pool {
	return &Pool{pool}
}

func (p *Pool) handleGetHeader(w http.ResponseWriter, req *http.Request) error {
	h := p.pool.Header()
	reserve, err := p.pool.ReserveBalance(req.Context())
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertHeader(&h, reserve, len(p.pool.Validators())))
}

func (p *Pool) handleGetValidators(w http.ResponseWriter, req *http.Request) error {
	entries := p.pool.Validators()
	out := make([]*Validator, 0, len(entries))
	for i := range entries {
		stake, transient := p.pool.Addresses(&entries[i])
		out = append(out, ConvertValidator(&entries[i], stake, transient))
	}
	return utils.WriteJSON(w, out)
}

func (p *Pool) handleGetValidator(w http.ResponseWriter, req *http.Request) error {
	vote, err := pubkey.Parse(mux.Vars(req)["vote"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "vote"))
	}
	e, err := p.pool.Validator(vote)
	if err != nil {
		if errors.Is(err, stakepool.ErrValidatorNotFound) {
			return utils.NotFound(err)
		}
		return err
	}
	stake, transient := p.pool.Addresses(e)
	return utils.WriteJSON(w, ConvertValidator(e, stake, transient))
}

func (p *Pool) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("pool_get_header").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetHeader))
	sub.Path("/validators").
		Methods(http.MethodGet).
		Name("pool_get_validators").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetValidators))
	sub.Path("/validators/{vote}").
		Methods(http.MethodGet).
		Name("pool_get_validator").
		HandlerFunc(utils.WrapHandlerFunc(p.handleGetValidator))
}
