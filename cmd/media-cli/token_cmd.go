package main

import (
	"flag"
	"fmt"
	"io"
	"math/big"
	"strings"
)

func runTokenCommand(args []string, stdout, stderr io.Writer) int {
	switch args[0] {
	case "balance":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "Usage: media-cli balance ACCOUNT")
			return 1
		}
		return invoke(stdout, stderr, "token_balanceOf", map[string]string{"account": strings.TrimSpace(args[1])}, false)
	case "supply":
		return invoke(stdout, stderr, "token_totalSupply", nil, false)
	case "send":
		return runSend(args[1:], stdout, stderr)
	case "approve":
		return runApprove(args[1:], stdout, stderr)
	case "allowance":
		return runAllowance(args[1:], stdout, stderr)
	}
	return 1
}

func runSend(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(stderr)
	from := fs.String("from", "", "sending account")
	to := fs.String("to", "", "receiving account")
	amount := fs.String("amount", "", "amount in base units")
	owner := fs.String("owner", "", "debit this account through an allowance granted to --from")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlags(map[string]string{"from": *from, "to": *to, "amount": *amount}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := validateAmount(*amount); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if strings.TrimSpace(*owner) != "" {
		return invoke(stdout, stderr, "token_transferFrom", map[string]string{
			"caller": *from,
			"from":   *owner,
			"to":     *to,
			"amount": *amount,
		}, true)
	}
	return invoke(stdout, stderr, "token_transfer", map[string]string{"caller": *from, "to": *to, "amount": *amount}, true)
}

func runApprove(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("approve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	from := fs.String("from", "", "owner granting the allowance")
	spender := fs.String("spender", "", "account allowed to spend")
	amount := fs.String("amount", "", "one-off allowance")
	limit := fs.String("cap", "", "recurrent allowance cap per period")
	period := fs.Uint64("period", 0, "recurrent period length in heights")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlags(map[string]string{"from": *from, "spender": *spender}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *limit != "" {
		if err := validateAmount(*limit); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return invoke(stdout, stderr, "token_approveRecurrent", map[string]interface{}{
			"caller":       *from,
			"spender":      *spender,
			"cap":          *limit,
			"periodLength": *period,
		}, true)
	}
	if err := validateAmount(*amount); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return invoke(stdout, stderr, "token_approve", map[string]string{"caller": *from, "spender": *spender, "amount": *amount}, true)
}

func runAllowance(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("allowance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	owner := fs.String("owner", "", "owner account")
	spender := fs.String("spender", "", "spender account")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlags(map[string]string{"owner": *owner, "spender": *spender}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return invoke(stdout, stderr, "token_allowance", map[string]string{"owner": *owner, "spender": *spender}, false)
}

func requireFlags(values map[string]string) error {
	var missing []string
	for _, name := range []string{"caller", "from", "owner", "to", "spender", "amount", "content", "recipient", "delegate", "master"} {
		if v, ok := values[name]; ok && strings.TrimSpace(v) == "" {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}
	return nil
}

func validateAmount(raw string) error {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("invalid amount %q", raw)
	}
	return nil
}
