// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/stakepool/api/pool"
	"github.com/vechain/stakepool/api/utils"
	"github.com/vechain/stakepool/pubkey"
	"github.com/vechain/stakepool/stakeacct"
	"github.com/vechain/stakepool/stakeacct/sim"
	"github.com/vechain/stakepool/stakepool"
	"github.com/vechain/stakepool/stakepool/fees"
	"github.com/vechain/stakepool/stakepool/preferred"
	"github.com/vechain/stakepool/stakepool/validator"
)

func initAction(ctx *cli.Context) error {
	if err := initLogger(ctx); err != nil {
		return err
	}
	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	if e.chain != nil {
		return stakepool.ErrAlreadyInitialized
	}

	params := stakeacct.Params{
		MinimumDelegation: cfg.Chain.MinimumDelegation,
		RentExemptReserve: cfg.Chain.RentExemptReserve,
	}
	e.chain = sim.New(params, cfg.Chain.Epoch)
	auth := pubkey.Authority(cfg.Pool)
	if err := e.chain.CreateStakeAccount(cfg.Reserve, cfg.Chain.ReserveLamports+params.RentExemptReserve,
		stakeacct.Authorized{Staker: auth, Withdrawer: auth}); err != nil {
		return errors.Wrap(err, "create reserve")
	}
	e.attach()

	p, err := stakepool.Initialize(context.Background(), cfg.poolConfig(), e.deps())
	if err != nil {
		return err
	}
	h := p.Header()
	fmt.Printf("pool %v initialized at epoch %d, authority %v, value %s SOL\n",
		h.Pool, h.LastUpdateEpoch, h.Authority, utils.SOL(h.TotalValue))
	return nil
}

func showAction(ctx *cli.Context) error {
	return withPool(ctx, func(e *env, p *stakepool.Pool) error {
		h := p.Header()
		entries := p.Validators()
		reserve, err := p.ReserveBalance(context.Background())
		if err != nil {
			return err
		}
		epoch, _ := e.chain.CurrentEpoch(context.Background())
		fmt.Printf("epoch %d, pool updated at %d\n", epoch, h.LastUpdateEpoch)
		fmt.Printf("value %s SOL, %d shares, reserve %s SOL\n", utils.SOL(h.TotalValue), h.ShareSupply, utils.SOL(reserve))
		for i := range entries {
			en := &entries[i]
			fmt.Printf("  %v %-24v active %d transient %d\n", en.VoteID, en.Status, en.ActiveBalance, en.TransientBalance)
		}
		return nil
	})
}

func fundAction(ctx *cli.Context) error {
	return withPool(ctx, func(e *env, _ *stakepool.Pool) error {
		addr, err := argPubkey(ctx, 0, "address")
		if err != nil {
			return err
		}
		lamports, err := argUint(ctx, 1, "lamports")
		if err != nil {
			return err
		}
		return e.chain.Fund(addr, lamports)
	})
}

func addValidatorAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		vote, err := argPubkey(ctx, 0, "vote account")
		if err != nil {
			return err
		}
		return p.AddValidator(context.Background(), vote, uint32(ctx.Uint(seedFlag.Name)))
	})
}

func removeValidatorAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		vote, err := argPubkey(ctx, 0, "vote account")
		if err != nil {
			return err
		}
		return p.RemoveValidator(context.Background(), vote)
	})
}

func increaseAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		vote, err := argPubkey(ctx, 0, "vote account")
		if err != nil {
			return err
		}
		amount, err := argUint(ctx, 1, "lamports")
		if err != nil {
			return err
		}
		return p.IncreaseStake(context.Background(), vote, amount)
	})
}

func decreaseAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		vote, err := argPubkey(ctx, 0, "vote account")
		if err != nil {
			return err
		}
		amount, err := argUint(ctx, 1, "lamports")
		if err != nil {
			return err
		}
		target, err := validator.ParseTarget(ctx.String(targetFlag.Name))
		if err != nil {
			return err
		}
		return p.DecreaseStake(context.Background(), vote, amount, target)
	})
}

func updateAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		totals, err := p.UpdateAll(context.Background(), !ctx.Bool(noMergeFlag.Name))
		if err != nil {
			return err
		}
		return printJSON(totals)
	})
}

func cleanupAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		removed, err := p.CleanupRemovedValidators(context.Background())
		if err != nil {
			return err
		}
		for _, r := range removed {
			fmt.Println("removed", r.VoteID)
		}
		return nil
	})
}

func depositAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		from, err := argPubkey(ctx, 0, "depositor")
		if err != nil {
			return err
		}
		lamports, err := argUint(ctx, 1, "lamports")
		if err != nil {
			return err
		}
		referrer, err := optPubkey(ctx.String(referrerFlag.Name))
		if err != nil {
			return errors.WithMessage(err, "referrer")
		}
		receipt, err := p.DepositWithSlippage(context.Background(), from, lamports, referrer, ctx.Uint64(minSharesFlag.Name))
		if err != nil {
			return err
		}
		return printJSON(receipt)
	})
}

func depositStakeAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		owner, err := argPubkey(ctx, 0, "owner")
		if err != nil {
			return err
		}
		stake, err := argPubkey(ctx, 1, "stake account")
		if err != nil {
			return err
		}
		referrer, err := optPubkey(ctx.String(referrerFlag.Name))
		if err != nil {
			return errors.WithMessage(err, "referrer")
		}
		receipt, err := p.DepositStake(context.Background(), owner, stake, referrer, ctx.Uint64(minSharesFlag.Name))
		if err != nil {
			return err
		}
		return printJSON(receipt)
	})
}

func withdrawAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		owner, err := argPubkey(ctx, 0, "owner")
		if err != nil {
			return err
		}
		shares, err := argUint(ctx, 1, "shares")
		if err != nil {
			return err
		}
		source, err := optPubkey(ctx.String(fromValidatorFlag.Name))
		if err != nil {
			return errors.WithMessage(err, "validator")
		}
		minLamports := ctx.Uint64(minLamportsFlag.Name)
		var receipt *stakepool.Receipt
		if ctx.Bool(transientFlag.Name) {
			if source == nil {
				return errors.New("--transient needs --validator")
			}
			receipt, err = p.WithdrawTransient(context.Background(), owner, shares, *source, minLamports)
		} else {
			receipt, err = p.WithdrawWithSlippage(context.Background(), owner, shares, source, minLamports)
		}
		if err != nil {
			return err
		}
		return printJSON(receipt)
	})
}

func preferredAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		kind, err := preferred.ParseKind(ctx.Args().Get(0))
		if err != nil {
			return err
		}
		vote, err := optPubkey(ctx.Args().Get(1))
		if err != nil {
			return errors.WithMessage(err, "vote account")
		}
		return p.SetPreferred(kind, vote)
	})
}

func feeAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		kind, err := fees.ParseKind(ctx.Args().Get(0))
		if err != nil {
			return err
		}
		fee, err := parseFee(ctx.Args().Get(1))
		if err != nil {
			return err
		}
		return p.SetFee(kind, fee)
	})
}

func advanceEpochAction(ctx *cli.Context) error {
	return withPool(ctx, func(e *env, _ *stakepool.Pool) error {
		epoch := e.chain.AdvanceEpoch(ctx.Uint64(epochsFlag.Name))
		fmt.Println("epoch", epoch)
		return nil
	})
}

func rewardAction(ctx *cli.Context) error {
	return withPool(ctx, func(e *env, p *stakepool.Pool) error {
		vote, err := argPubkey(ctx, 0, "vote account")
		if err != nil {
			return err
		}
		lamports, err := argUint(ctx, 1, "lamports")
		if err != nil {
			return err
		}
		entry, err := p.Validator(vote)
		if err != nil {
			return err
		}
		stake, _ := p.Addresses(entry)
		return e.chain.Reward(stake, lamports)
	})
}

func rebalanceAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		plan, err := p.Rebalance(context.Background(), ctx.Uint64(retainFlag.Name), ctx.Bool(dryRunFlag.Name))
		if plan != nil {
			fmt.Printf("%s SOL per validator\n", utils.SOL(plan.Target))
			for _, m := range plan.Moves {
				fmt.Printf("  %v %v %d\n", m.Kind, m.Vote, m.Lamports)
			}
			for _, s := range plan.Skips {
				fmt.Printf("  skip %v: %s\n", s.Vote, s.Reason)
			}
		}
		return err
	})
}

func validatorsAction(ctx *cli.Context) error {
	return withPool(ctx, func(_ *env, p *stakepool.Pool) error {
		entries := p.Validators()
		out := make([]*pool.Validator, 0, len(entries))
		for i := range entries {
			stake, transient := p.Addresses(&entries[i])
			out = append(out, pool.ConvertValidator(&entries[i], stake, transient))
		}
		return printJSON(out)
	})
}
