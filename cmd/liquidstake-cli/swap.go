package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const swapUsage = "Usage: liquidstake-cli swap <add|remove|swap|claim|set-fee|sweep|status|config|book|order|claimable> ..."

func runSwapCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, swapUsage)
		return 1
	}
	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli swap add <caller> <amount> [denom]")
			return 1
		}
		params := map[string]string{"caller": args[1], "amount": args[2]}
		if len(args) > 3 {
			params["denom"] = args[3]
		}
		return printCall(stdout, stderr, "swap_add", params, true)
	case "remove":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli swap remove <caller>")
			return 1
		}
		return printCall(stdout, stderr, "swap_remove", map[string]string{"caller": args[1]}, true)
	case "swap":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli swap swap <caller> <amount>")
			return 1
		}
		return printCall(stdout, stderr, "swap_swap", map[string]string{"caller": args[1], "amount": args[2]}, true)
	case "claim":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli swap claim <caller>")
			return 1
		}
		return printCall(stdout, stderr, "swap_claim", map[string]string{"caller": args[1]}, true)
	case "set-fee":
		if len(args) < 3 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli swap set-fee <caller> <bps>")
			return 1
		}
		bps, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			fmt.Fprintf(stderr, "invalid fee: %v\n", err)
			return 1
		}
		return printCall(stdout, stderr, "swap_setFee", map[string]interface{}{"caller": args[1], "feeBps": bps}, true)
	case "sweep":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli swap sweep <caller> [recipient]")
			return 1
		}
		params := map[string]string{"caller": args[1]}
		if len(args) > 2 {
			params["recipient"] = args[2]
		}
		return printCall(stdout, stderr, "swap_sweepRemainder", params, true)
	case "status":
		return printCall(stdout, stderr, "swap_status", nil, false)
	case "config":
		return printCall(stdout, stderr, "swap_config", nil, false)
	case "book":
		params, err := pageArgs(args[1:])
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return printCall(stdout, stderr, "swap_orderBook", params, false)
	case "order":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli swap order <address>")
			return 1
		}
		return printCall(stdout, stderr, "swap_orderOf", map[string]string{"address": args[1]}, false)
	case "claimable":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli swap claimable <address>")
			return 1
		}
		return printCall(stdout, stderr, "swap_claimable", map[string]string{"address": args[1]}, false)
	default:
		fmt.Fprintf(stderr, "Unknown swap subcommand %q\n", args[0])
		fmt.Fprintln(stderr, swapUsage)
		return 1
	}
}
