package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"mediachain/cmd/internal/passphrase"
	"mediachain/crypto"
)

const (
	keyPassEnv   = "MEDIA_KEY_PASS"
	jwtSecretEnv = "MEDIA_RPC_JWT_SECRET"
)

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
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "auth-token":
		return runAuthToken(args[1:], stdout, stderr)
	case "balance", "send", "approve", "allowance", "supply":
		return runTokenCommand(args, stdout, stderr)
	case "promo":
		return runPromoCommand(args[1:], stdout, stderr)
	case "delegation":
		return runDelegationCommand(args[1:], stdout, stderr)
	case "height":
		return invoke(stdout, stderr, "chain_height", nil, false)
	case "mine":
		return runMine(args[1:], stdout, stderr)
	case "events":
		return runEvents(args[1:], stdout, stderr)
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

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "wallet.keystore", "keystore file to write")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", *out)
		return 1
	}
	pass, err := passphrase.NewSource(keyPassEnv).Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: generate key: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystore(*out, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error: save keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote %s\nAddress: %s\n", *out, key.PubKey().Address().String())
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keyFile := fs.String("key", "wallet.keystore", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	pass, err := passphrase.NewSource(keyPassEnv).Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.LoadFromKeystore(*keyFile, pass)
	if err != nil {
		fmt.Fprintf(stderr, "Error: load keystore: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

// runAuthToken signs a bearer token for nodes running with AuthEnabled.
func runAuthToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("auth-token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sub := fs.String("sub", "", "bech32 account the token acts for")
	operator := fs.Bool("operator", false, "grant the operator scope")
	issuer := fs.String("issuer", "mediachain", "issuer claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	secret := strings.TrimSpace(os.Getenv(jwtSecretEnv))
	if secret == "" {
		fmt.Fprintf(stderr, "Error: %s must be set\n", jwtSecretEnv)
		return 1
	}
	claims, err := buildClaims(strings.TrimSpace(*sub), *operator, *issuer, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(stderr, "Error: sign token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, signed)
	return 0
}

func buildClaims(sub string, operator bool, issuer string, ttl time.Duration, now time.Time) (jwt.MapClaims, error) {
	if sub == "" && !operator {
		return nil, fmt.Errorf("--sub or --operator is required")
	}
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	if sub != "" {
		if _, err := crypto.ParseAccount(sub); err != nil {
			return nil, fmt.Errorf("invalid --sub: %w", err)
		}
		claims["sub"] = sub
	}
	if operator {
		claims["scope"] = "operator"
	}
	return claims, nil
}

func runMine(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mine", flag.ContinueOnError)
	fs.SetOutput(stderr)
	blocks := fs.Uint64("blocks", 1, "number of heights to advance")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return invoke(stdout, stderr, "chain_mine", map[string]uint64{"blocks": *blocks}, true)
}

func runEvents(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(stderr)
	kind := fs.String("type", "", "exact event type")
	content := fs.String("content", "", "content id")
	from := fs.Uint64("from", 0, "first height")
	limit := fs.Int("limit", 0, "maximum records")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	params := map[string]interface{}{"fromHeight": *from}
	if *kind != "" {
		params["type"] = *kind
	}
	if *content != "" {
		params["contentId"] = *content
	}
	if *limit > 0 {
		params["limit"] = *limit
	}
	return invoke(stdout, stderr, "events_list", params, false)
}

// runRawCall forwards an arbitrary method with a JSON object as params.
func runRawCall(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(stderr, "Usage: media-cli call <method> [json-params]")
		return 1
	}
	var params interface{}
	if len(args) == 2 {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(args[1]), &obj); err != nil {
			fmt.Fprintf(stderr, "Error: params must be a JSON object: %v\n", err)
			return 1
		}
		params = obj
	}
	return invoke(stdout, stderr, args[0], params, true)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: media-cli [--rpc URL] <command> [flags]

Commands:
  generate-key  --out FILE                      create an encrypted keystore
  address       --key FILE                      print the keystore address
  auth-token    --sub ACCOUNT | --operator      sign an RPC bearer token
  balance       ACCOUNT                         show a balance
  supply                                        show the total supply
  send          --from A --to B --amount N      transfer tokens
  approve       --from A --spender B --amount N [--cap N --period H]
  allowance     --owner A --spender B           show allowances
  promo         register|budget|authority|interact|end|get|list|buy
  delegation    propose|master|withdraw|withdraw-master|master-of
  height                                        show the current height
  mine          --blocks N                      advance the height
  events        [--type T --content ID --from H --limit N]
  call          METHOD [JSON]                   raw JSON-RPC call

Environment:
  MEDIA_RPC_URL, MEDIA_RPC_TOKEN, MEDIA_KEY_PASS, MEDIA_RPC_JWT_SECRET`)
}
