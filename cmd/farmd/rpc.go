package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/obsfarm/farmd/client"
	"github.com/obsfarm/farmd/server"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRPCCmd() *cobra.Command {
	var uri string

	rpcCmd := &cobra.Command{
		Use:   "rpc",
		Short: "Call a running farmd daemon",
	}
	rpcCmd.PersistentFlags().StringVar(&uri, "uri", "http://localhost:9080", "URI of the API server")

	rpcCmd.AddCommand(
		&cobra.Command{
			Use:   "deposit ACCOUNT AMOUNT",
			Short: "Deposit tokens for the account",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return client.New(uri).Deposit(args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "withdraw ACCOUNT AMOUNT",
			Short: "Withdraw deposited tokens",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return client.New(uri).Withdraw(args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "claim ACCOUNT",
			Short: "Claim accrued rewards",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return client.New(uri).Claim(args[0])
			},
		},
		&cobra.Command{
			Use:   "sweep CALLER ASSET TO AMOUNT",
			Short: "Sweep funds out of ledger custody (administrators only)",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				return client.New(uri).Sweep(args[0], args[1], args[2], args[3])
			},
		},
		&cobra.Command{
			Use:   "account ACCOUNT",
			Short: "Show the account record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ac, err := client.New(uri).GetAccount(args[0])
				if err != nil {
					return err
				}
				return printJSON(ac)
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show ledger statistics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := client.New(uri).GetStats()
				if err != nil {
					return err
				}
				return printJSON(st)
			},
		},
		&cobra.Command{
			Use:   "monitor",
			Short: "Stream reward payout events",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return client.New(uri).MonitorRewards(func(ev *server.RewardPaidEvent) error {
					fmt.Printf("%d reward account=%s amount=%s\n", ev.PaidAt, ev.Account, ev.Amount)
					return nil
				})
			},
		},
	)
	return rpcCmd
}
