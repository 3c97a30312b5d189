// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"github.com/vechain/stakepool/metrics"
	"github.com/vechain/stakepool/stakepool/reverts"
)

var (
	metricOperations     = metrics.LazyLoadCounterVec("operations_count", []string{"op", "result"})
	metricUpdateDuration = metrics.LazyLoadHistogram("update_duration_ms", metrics.BucketUpdateMillis)
	metricStakeActions   = metrics.LazyLoadCounterVec("stake_actions_count", []string{"action"})
	metricFeeShares      = metrics.LazyLoadCounter("epoch_fee_shares_count")
	metricTotalValue     = metrics.LazyLoadGauge("total_value_lamports")
	metricShareSupply    = metrics.LazyLoadGauge("share_supply")
	metricValidators     = metrics.LazyLoadGauge("validators_count")
)

func countOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
		if kind := reverts.KindOf(err); kind != 0 {
			result = kind.String()
		}
	}
	metricOperations().AddWithLabel(1, map[string]string{"op": op, "result": result})
}

func (p *Pool) updateGauges() {
	h := &p.state.Header
	metricTotalValue().Set(int64(h.TotalValue))
	metricShareSupply().Set(int64(h.ShareSupply))
	metricValidators().Set(int64(p.state.Validators.Len()))
}
