// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package auditdb

// one row per reconciled validator entry
const reconcileTableSchema = `
create table if not exists reconcile (
	seq integer primary key autoincrement,
	epoch integer not null,
	vote blob(32) not null,
	statusBefore integer,
	status integer,
	active integer,
	transient integer,
	toReserve integer,
	validatorClass text,
	transientClass text,
	actions integer
);

CREATE INDEX if not exists reconcileEpochIndex on reconcile(epoch);
CREATE INDEX if not exists reconcileVoteIndex on reconcile(vote);
`

// one row per pool balance update
const totalsTableSchema = `
create table if not exists totals (
	seq integer primary key autoincrement,
	epoch integer not null,
	newEpoch integer,
	reserve integer,
	staked integer,
	totalValue integer,
	prevTotalValue integer,
	shareSupply integer,
	reward integer,
	feeShares integer
);

CREATE INDEX if not exists totalsEpochIndex on totals(epoch);
`
