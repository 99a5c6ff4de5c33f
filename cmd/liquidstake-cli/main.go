package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"liquidstake/cmd/internal/passphrase"
	"liquidstake/crypto"
)

const (
	rpcTokenEnv      = "LIQUIDSTAKE_RPC_TOKEN"
	keystorePassEnv  = "LIQUIDSTAKE_KEYSTORE_PASS"
	defaultRPCTarget = "http://localhost:8545"
)

var rpcEndpoint = defaultRPCEndpoint() // RPC_URL or --rpc overrides
var rpcAuthToken = os.Getenv(rpcTokenEnv)

func main() {
	args, err := applyGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(run(args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	switch args[0] {
	case "keygen":
		return runKeygenCommand(args[1:], stdout, stderr)
	case "address":
		return runAddressCommand(args[1:], stdout, stderr)
	case "staking":
		return runStakingCommand(args[1:], stdout, stderr)
	case "swap":
		return runSwapCommand(args[1:], stdout, stderr)
	case "balance":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli balance <address> [denom]")
			return 1
		}
		params := map[string]string{"address": args[1]}
		if len(args) > 2 {
			params["denom"] = args[2]
		}
		return printCall(stdout, stderr, "bank_balance", params, false)
	case "tokens":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "Usage: liquidstake-cli tokens <address> [symbol]")
			return 1
		}
		params := map[string]string{"address": args[1]}
		if len(args) > 2 {
			params["symbol"] = args[2]
		}
		return printCall(stdout, stderr, "token_balance", params, false)
	case "pause", "unpause":
		if len(args) < 3 {
			fmt.Fprintf(stderr, "Usage: liquidstake-cli %s <caller> <staking|liquidswap>\n", args[0])
			return 1
		}
		params := map[string]interface{}{"caller": args[1], "module": args[2], "paused": args[0] == "pause"}
		return printCall(stdout, stderr, "module_setPaused", params, true)
	case "invariants":
		return printCall(stdout, stderr, "audit_invariants", nil, false)
	case "height":
		return printCall(stdout, stderr, "node_height", nil, false)
	case "call":
		return runRawCall(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return defaultRPCTarget
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--rpc":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
		case strings.HasPrefix(arg, "--rpc="):
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
		default:
			out = append(out, arg)
		}
	}
	return out, nil
}

func runKeygenCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: liquidstake-cli keygen <keystore-path>")
		return 1
	}
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", path)
		return 1
	}
	pass, err := passphrase.NewSource(keystorePassEnv, "new keystore").Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: generate key: %v\n", err)
		return 1
	}
	if err := crypto.SaveKeystore(path, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error: save keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Saved keystore to %s\n", path)
	fmt.Fprintf(stdout, "Address: %s\n", key.Address().String())
	return 0
}

func runAddressCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: liquidstake-cli address <keystore-path>")
		return 1
	}
	pass, err := passphrase.NewSource(keystorePassEnv, "keystore").Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.LoadKeystore(args[0], pass)
	if err != nil {
		fmt.Fprintf(stderr, "Error: load keystore: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.Address().String())
	return 0
}

func runRawCall(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: liquidstake-cli call <method> [paramsJSON] [--auth]")
		return 1
	}
	method := args[0]
	var param interface{}
	requireAuth := false
	for _, arg := range args[1:] {
		if arg == "--auth" {
			requireAuth = true
			continue
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(arg), &decoded); err != nil {
			fmt.Fprintf(stderr, "Error: params must be a JSON object: %v\n", err)
			return 1
		}
		param = decoded
	}
	return printCall(stdout, stderr, method, param, requireAuth)
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("%s (code %d): %v", e.Message, e.Code, e.Data)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func callRPC(method string, param interface{}, requireAuth bool) (json.RawMessage, error) {
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if param != nil {
		payload["params"] = []interface{}{param}
	} else {
		payload["params"] = []interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := doRPCRequest(body, requireAuth)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response from node (HTTP %d)", resp.StatusCode)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("error from node: %w", rpcResp.Error)
	}
	return rpcResp.Result, nil
}

func doRPCRequest(payload []byte, requireAuth bool) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if strings.TrimSpace(rpcAuthToken) == "" {
			return nil, fmt.Errorf("mutating RPC call requires %s to be set", rpcTokenEnv)
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rpcAuthToken))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	return resp, nil
}

func printCall(stdout, stderr io.Writer, method string, param interface{}, requireAuth bool) int {
	result, err := callRPC(method, param, requireAuth)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printJSONResult(stdout, result)
	return 0
}

func printJSONResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "No result.")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Fprintln(w, string(result))
		return
	}
	fmt.Fprintln(w, buf.String())
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: liquidstake-cli [--rpc URL] <command> [args]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  keygen <keystore-path>                 Generate an account keystore")
	fmt.Fprintln(w, "  address <keystore-path>                Print the address of a keystore")
	fmt.Fprintln(w, "  balance <address> [denom]              Native balance")
	fmt.Fprintln(w, "  tokens <address> [symbol]              Liquid token balance")
	fmt.Fprintln(w, "  staking <subcommand> ...               Stake, unstake, claim, sync and queries")
	fmt.Fprintln(w, "  swap <subcommand> ...                  Provide liquidity, swap and queries")
	fmt.Fprintln(w, "  pause|unpause <caller> <module>        Toggle a module pause (owner only)")
	fmt.Fprintln(w, "  invariants                             Audit module invariants")
	fmt.Fprintln(w, "  height                                 Current block height")
	fmt.Fprintln(w, "  call <method> [paramsJSON] [--auth]    Raw JSON-RPC call")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Mutating commands read the bearer token from %s.\n", rpcTokenEnv)
}
