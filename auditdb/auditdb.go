// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package auditdb is a sqlite journal of pool updates.
package auditdb

import (
	"context"
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/stakepool/accounting"
	"github.com/vechain/stakepool/stakepool/validator"
)

type AuditDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

var _ stakepool.Journal = (*AuditDB)(nil)

// New creates or opens the audit db at path.
func New(path string) (adb *AuditDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if adb == nil {
			db.Close()
		}
	}()
	// every connection of an in-memory db would see its own database
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(reconcileTableSchema + totalsTableSchema); err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &AuditDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem creates an audit db in ram.
func NewMem() (*AuditDB, error) {
	return New(":memory:")
}

func (db *AuditDB) Close() error {
	return db.db.Close()
}

func (db *AuditDB) Path() string {
	return db.path
}

func (db *AuditDB) DriverVersion() string {
	return db.driverVersion
}

// RecordReconcile writes the outcomes that were reconciled. Skipped
// outcomes carry nothing new and are left out.
func (db *AuditDB) RecordReconcile(ctx context.Context, epoch uint64, outcomes []*accounting.Outcome) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO reconcile(epoch, vote, statusBefore, status, active, transient, toReserve, validatorClass, transientClass, actions) VALUES(?,?,?,?,?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, out := range outcomes {
		if out.Skipped {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			epoch,
			out.After.VoteID.Bytes(),
			uint8(out.Before.Status),
			uint8(out.After.Status),
			out.After.ActiveBalance,
			out.After.TransientBalance,
			out.ToReserve,
			out.Validator.String(),
			out.Transient.String(),
			len(out.Actions),
		); err != nil {
			return errors.Wrapf(err, "insert reconcile of %v", out.After.VoteID)
		}
	}
	return tx.Commit()
}

// RecordTotals writes a pool balance update.
func (db *AuditDB) RecordTotals(ctx context.Context, t *stakepool.Totals) error {
	_, err := db.db.ExecContext(ctx,
		"INSERT INTO totals(epoch, newEpoch, reserve, staked, totalValue, prevTotalValue, shareSupply, reward, feeShares) VALUES(?,?,?,?,?,?,?,?,?)",
		t.Epoch, t.NewEpoch, t.Reserve, t.Staked, t.TotalValue, t.PrevTotalValue, t.ShareSupply, t.Reward, t.FeeShares,
	)
	return err
}

func buildQuery(table string, filter *Filter) (string, []any) {
	stmt := "SELECT * FROM " + table + " WHERE 1"
	var args []any
	if filter == nil {
		return stmt + " ORDER BY seq ASC", args
	}
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND epoch >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND epoch <= ? "
		}
	}
	if filter.Vote != nil && table == "reconcile" {
		args = append(args, filter.Vote.Bytes())
		stmt += " AND vote = ? "
	}
	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}
	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return stmt, args
}

// FilterReconciles queries reconcile records. A nil filter returns all.
func (db *AuditDB) FilterReconciles(ctx context.Context, filter *Filter) ([]*Reconcile, error) {
	stmt, args := buildQuery("reconcile", filter)
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Reconcile
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			r            Reconcile
			vote         []byte
			statusBefore uint8
			status       uint8
		)
		if err := rows.Scan(
			&r.Seq,
			&r.Epoch,
			&vote,
			&statusBefore,
			&status,
			&r.Active,
			&r.Transient,
			&r.ToReserve,
			&r.ValidatorClass,
			&r.TransientClass,
			&r.Actions,
		); err != nil {
			return nil, err
		}
		r.Vote = pubkey.BytesToPubkey(vote)
		r.StatusBefore = validator.Status(statusBefore)
		r.Status = validator.Status(status)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// FilterTotals queries totals records. The vote criterion is ignored.
func (db *AuditDB) FilterTotals(ctx context.Context, filter *Filter) ([]*Totals, error) {
	stmt, args := buildQuery("totals", filter)
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Totals
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var t Totals
		if err := rows.Scan(
			&t.Seq,
			&t.Epoch,
			&t.NewEpoch,
			&t.Reserve,
			&t.Staked,
			&t.TotalValue,
			&t.PrevTotalValue,
			&t.ShareSupply,
			&t.Reward,
			&t.FeeShares,
		); err != nil {
			return nil, err
		}
		records = append(records, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// LatestTotals returns the most recent totals record, or nil.
func (db *AuditDB) LatestTotals(ctx context.Context) (*Totals, error) {
	records, err := db.FilterTotals(ctx, &Filter{Order: DESC, Options: &Options{Limit: 1}})
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}
