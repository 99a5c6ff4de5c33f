package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const stakingUsage = "Usage: liquidstake-cli staking <stake|unstake|claim|sync|set-token|status|config|queue|claimable|unstaking> ..."

func runStakingCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, stakingUsage)
		return 1
	}
	switch strings.ToLower(args[0]) {
	case "stake":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli staking stake <caller> <amount> [denom]")
			return 1
		}
		params := map[string]string{"caller": args[1], "amount": args[2]}
		if len(args) > 3 {
			params["denom"] = args[3]
		}
		return printCall(stdout, stderr, "staking_stake", params, true)
	case "unstake":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli staking unstake <caller> <amount>")
			return 1
		}
		return printCall(stdout, stderr, "staking_unstake", map[string]string{"caller": args[1], "amount": args[2]}, true)
	case "claim":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli staking claim <caller>")
			return 1
		}
		return printCall(stdout, stderr, "staking_claim", map[string]string{"caller": args[1]}, true)
	case "sync":
		return printCall(stdout, stderr, "staking_sync", nil, true)
	case "set-token":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli staking set-token <caller> <symbol>")
			return 1
		}
		return printCall(stdout, stderr, "staking_setLiquidToken", map[string]string{"caller": args[1], "token": args[2]}, true)
	case "status":
		return printCall(stdout, stderr, "staking_status", nil, false)
	case "config":
		return printCall(stdout, stderr, "staking_config", nil, false)
	case "queue":
		params, err := pageArgs(args[1:])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return printCall(stdout, stderr, "staking_queue", params, false)
	case "claimable":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli staking claimable <address>")
			return 1
		}
		return printCall(stdout, stderr, "staking_claimable", map[string]string{"address": args[1]}, false)
	case "unstaking":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli staking unstaking <address>")
			return 1
		}
		return printCall(stdout, stderr, "staking_underUnstaking", map[string]string{"address": args[1]}, false)
	default:
		fmt.Fprintf(stderr, "Unknown staking subcommand %q\n", args[0])
		fmt.Fprintln(stderr, stakingUsage)
		return 1
	}
}

// pageArgs parses optional [cursor] [limit] arguments.
func pageArgs(args []string) (map[string]interface{}, error) {
	params := map[string]interface{}{}
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		cursor, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		params["cursor"] = cursor
	}
	if len(args) > 1 {
		limit, err := strconv.Atoi(args[1])
		if err != nil || limit < 0 {
			return nil, fmt.Errorf("invalid limit %q", args[1])
		}
		params["limit"] = limit
	}
	return params, nil
}
