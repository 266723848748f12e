package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlexNa-Holdings/stakezil/bus"
	"github.com/AlexNa-Holdings/stakezil/cmn"
	"github.com/AlexNa-Holdings/stakezil/eth"
	"github.com/AlexNa-Holdings/stakezil/rewards"
	"github.com/AlexNa-Holdings/stakezil/staking"
	"github.com/AlexNa-Holdings/stakezil/widget"
	"github.com/AlexNa-Holdings/stakezil/ws"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func newOracle(ctx context.Context) (*staking.Oracle, error) {
	threshold, err := decimal.NewFromString(cmn.Config.StakingMinZil)
	if err != nil {
		return nil, fmt.Errorf("staking_min_zil: %w", err)
	}

	client, err := eth.Dial(ctx, cmn.Config.RPCURL, cmn.Config.RPCRateLimit)
	if err != nil {
		return nil, err
	}

	if id, err := client.ChainID(ctx); err != nil {
		log.Warn().Err(err).Msg("chain id unavailable")
	} else if id.Int64() != int64(cmn.Config.ChainId) {
		log.Warn().Msgf("RPC %s serves chain %d, expected %d", cmn.Config.RPCURL, id.Int64(), cmn.Config.ChainId)
	}

	return staking.NewOracle(client, cmn.EligibilityPools, threshold), nil
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the page bridge",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Usage: "listen address",
		},
	},
	Action: func(cctx *cli.Context) error {
		if l := cctx.String("listen"); l != "" {
			cmn.Config.Listen = l
		}

		fee, err := decimal.NewFromString(cmn.Config.AffiliateDefaultPercent)
		if err != nil {
			return fmt.Errorf("affiliate_default_percent: %w", err)
		}

		bus.BusTimeout = cmn.Config.BusTimeout
		bus.Init()

		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		oracle, err := newOracle(ctx)
		if err != nil {
			return err
		}

		store, err := rewards.Open(cmn.Config.RewardsBackend, cmn.DataFolder, cmn.Config.RedisURL)
		if err != nil {
			return err
		}
		defer store.Close()

		srv := ws.NewServer(oracle, store, widget.FeeSettings{
			DefaultPercent: fee,
			Recipient:      cmn.Config.AffiliateRecipient,
		})

		fmt.Println(STAKEZIL)
		fmt.Printf("v%s listening on %s\n", cmn.VERSION, cmn.Config.Listen)

		return srv.ListenAndServe(ctx, cmn.Config.Listen)
	},
}

var checkCmd = &cli.Command{
	Name:      "check",
	Usage:     "show the stake of an address and whether it trades at zero fee",
	ArgsUsage: "address",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 1 {
			return fmt.Errorf("expected one address")
		}
		addr := cmn.ZilToEvmAddress(cctx.Args().Get(0))
		if addr == nil {
			return fmt.Errorf("invalid address: %s", cctx.Args().Get(0))
		}

		ctx, cancel := context.WithTimeout(cctx.Context, time.Minute)
		defer cancel()

		oracle, err := newOracle(ctx)
		if err != nil {
			return err
		}

		report, err := oracle.GetStakedZilForAddress(ctx, *addr)
		if err != nil {
			return err
		}

		fmt.Printf("address:   %s (%s)\n", addr.Hex(), cmn.ShortAddress(*addr))
		fmt.Printf("chain:     %d\n", report.ChainId)
		for _, p := range report.PerPool {
			fmt.Printf("  %-14s %s ZIL\n", p.Pool, p.StakedZil.StringFixed(staking.DisplayPlaces))
		}
		fmt.Printf("total:     %s ZIL\n", cmn.FormatZil(report.Total))

		res, err := oracle.IsEligibleForZeroFee(ctx, *addr)
		if err != nil {
			return err
		}
		if res.Eligible {
			fmt.Println("fee:       0% (zero-fee tier)")
		} else {
			fmt.Printf("fee:       %s%% (needs %s ZIL staked)\n", cmn.Config.AffiliateDefaultPercent, cmn.FormatZil(oracle.Threshold()))
		}
		return nil
	},
}

var walletsCmd = &cli.Command{
	Name:  "wallets",
	Usage: "list the wallets seen by connected pages of a running bridge",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "bridge base url",
		},
	},
	Action: func(cctx *cli.Context) error {
		url := cctx.String("url")
		if url == "" {
			url = "http://" + cmn.Config.Listen
		}

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(url + "/debug/wallets")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: %s", url, resp.Status)
		}

		var list []json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
			return err
		}
		out, err := json.MarshalIndent(list, " ", "\t")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
