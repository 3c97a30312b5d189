// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/stakepool/auditdb"
	"github.com/vechain/stakepool/kv"
	"github.com/vechain/stakepool/log"
	"github.com/vechain/stakepool/poolstore"
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/sharetoken"
	"github.com/vechain/stakepool/stakeacct/sim"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/stakepool/fees"
)

func initLogger(ctx *cli.Context) error {
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	h, err := log.NewHandler(os.Stderr, ctx.GlobalString(logFormatFlag.Name), ctx.GlobalInt(verbosityFlag.Name), color)
	if err != nil {
		return err
	}
	log.SetDefault(h)
	return nil
}

// env is everything a command works on, all persisted under the data dir.
type env struct {
	db      *kv.LevelDB
	audit   *auditdb.AuditDB
	chain   *sim.Chain
	ledger  *sharetoken.Ledger
	store   *poolstore.Store
	journal stakepool.Journal
}

func openEnv(ctx *cli.Context) (*env, error) {
	dir := ctx.GlobalString(dataDirFlag.Name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	db, err := kv.NewLevelDB(filepath.Join(dir, "state"), kv.Options{})
	if err != nil {
		return nil, err
	}
	e := &env{db: db}
	if e.chain, err = sim.Load(db); err != nil {
		e.Close()
		return nil, err
	}
	if e.ledger, err = sharetoken.LoadLedger(db); err != nil {
		e.Close()
		return nil, err
	}
	if !ctx.GlobalBool(disableAuditFlag.Name) {
		if e.audit, err = auditdb.New(filepath.Join(dir, "audit.db")); err != nil {
			e.Close()
			return nil, err
		}
		e.journal = e.audit
	}
	e.attach()
	return e, nil
}

// attach binds the store to the current chain and ledger.
func (e *env) attach() {
	if e.chain == nil {
		e.store = poolstore.New(e.db, e.ledger)
		return
	}
	e.store = poolstore.New(e.db, e.chain, e.ledger)
}

func (e *env) deps() stakepool.Deps {
	return stakepool.Deps{Clock: e.chain, Stake: e.chain, Shares: e.ledger, Store: e.store, Journal: e.journal}
}

func (e *env) openPool() (*stakepool.Pool, error) {
	if e.chain == nil {
		return nil, stakepool.ErrNotInitialized
	}
	return stakepool.Open(e.deps())
}

func (e *env) Close() {
	if e.audit != nil {
		e.audit.Close()
	}
	e.db.Close()
}

// withPool runs fn on the opened pool and persists the chain afterwards,
// since fn may have changed it outside a pool commit.
func withPool(ctx *cli.Context, fn func(e *env, p *stakepool.Pool) error) error {
	if err := initLogger(ctx); err != nil {
		return err
	}
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	p, err := e.openPool()
	if err != nil {
		return err
	}
	if err := fn(e, p); err != nil {
		return err
	}
	return e.store.Flush()
}

func argPubkey(ctx *cli.Context, i int, name string) (pubkey.Pubkey, error) {
	s := ctx.Args().Get(i)
	if s == "" {
		return pubkey.Pubkey{}, errors.Errorf("missing %s", name)
	}
	k, err := pubkey.Parse(s)
	if err != nil {
		return pubkey.Pubkey{}, errors.WithMessage(err, name)
	}
	return k, nil
}

func optPubkey(s string) (*pubkey.Pubkey, error) {
	if s == "" {
		return nil, nil
	}
	k, err := pubkey.Parse(s)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func argUint(ctx *cli.Context, i int, name string) (uint64, error) {
	s := ctx.Args().Get(i)
	if s == "" {
		return 0, errors.Errorf("missing %s", name)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.WithMessage(err, name)
	}
	return v, nil
}

// parseFee parses a fee written as numerator/denominator.
func parseFee(s string) (fees.Fee, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return fees.Fee{}, errors.Errorf("fee %q is not numerator/denominator", s)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(num), 10, 64)
	if err != nil {
		return fees.Fee{}, errors.WithMessage(err, "numerator")
	}
	d, err := strconv.ParseUint(strings.TrimSpace(den), 10, 64)
	if err != nil {
		return fees.Fee{}, errors.WithMessage(err, "denominator")
	}
	f := fees.Fee{Numerator: n, Denominator: d}
	return f, f.Validate()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
