package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

func runPromoCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: media-cli promo register|budget|authority|interact|end|get|list|buy")
		return 1
	}
	switch args[0] {
	case "register":
		return runPromoRegister(args[1:], stdout, stderr)
	case "budget":
		return runPromoBudget(args[1:], stdout, stderr)
	case "authority":
		return runPromoAuthority(args[1:], stdout, stderr)
	case "interact":
		return runPromoInteract(args[1:], stdout, stderr)
	case "end":
		return runPromoEnd(args[1:], stdout, stderr)
	case "get":
		return runPromoGet(args[1:], stdout, stderr)
	case "list":
		return invoke(stdout, stderr, "promotion_list", nil, false)
	case "buy":
		return runPromoBuy(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown promo subcommand: %s\n", args[0])
		return 1
	}
}

func runPromoRegister(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("promo register", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "campaign owner")
	content := fs.String("content", "", "content id")
	start := fs.Uint64("start", 0, "start height")
	duration := fs.Uint64("duration", 0, "duration in heights")
	budget := fs.String("budget", "0", "initial budget")
	likes := fs.Bool("likes", false, "reward likes")
	comments := fs.Bool("comments", false, "reward comments")
	shares := fs.Bool("shares", false, "reward shares")
	views := fs.Bool("views", false, "reward views")
	authorities := fs.String("authorities", "", "comma separated verification services")
	split := fs.Uint64("referral-split", 0, "percent of a purchase routed to the referrer")
	minViews := fs.Uint64("min-views", 0, "views required before a bucket is paid")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlags(map[string]string{"caller": *caller, "content": *content}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := validateAmount(*budget); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	params := map[string]interface{}{
		"caller":      *caller,
		"contentId":   *content,
		"startHeight": *start,
		"duration":    *duration,
		"budget":      *budget,
		"likes":       *likes,
		"comments":    *comments,
		"shares":      *shares,
		"views":       *views,
	}
	if list := splitList(*authorities); len(list) > 0 {
		params["authorities"] = list
	}
	if *split > 0 {
		params["referralSplit"] = *split
	}
	if *minViews > 0 {
		params["minViewCount"] = *minViews
	}
	return invoke(stdout, stderr, "promotion_register", params, true)
}

func runPromoBudget(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("promo budget", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "campaign owner")
	content := fs.String("content", "", "content id")
	amount := fs.String("amount", "", "amount to add")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlags(map[string]string{"caller": *caller, "content": *content, "amount": *amount}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return invoke(stdout, stderr, "promotion_addBudget", map[string]string{"caller": *caller, "contentId": *content, "amount": *amount}, true)
}

func runPromoAuthority(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("promo authority", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "campaign owner")
	content := fs.String("content", "", "content id")
	service := fs.String("service", "", "verification service name")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlags(map[string]string{"caller": *caller, "content": *content}); err != nil || strings.TrimSpace(*service) == "" {
		fmt.Fprintln(stderr, "Error: --caller, --content and --service are required")
		return 1
	}
	return invoke(stdout, stderr, "promotion_addVerificationAuthority", map[string]string{"caller": *caller, "contentId": *content, "service": *service}, true)
}

func runPromoInteract(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("promo interact", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "participant")
	content := fs.String("content", "", "content id")
	kind := fs.String("kind", "", "like, comment, share or view")
	metadata := fs.String("metadata", "", "interaction metadata")
	co := fs.String("co", "", "comma separated co-accounts")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlags(map[string]string{"caller": *caller, "content": *content}); err != nil || strings.TrimSpace(*kind) == "" {
		fmt.Fprintln(stderr, "Error: --caller, --content and --kind are required")
		return 1
	}
	params := map[string]interface{}{"caller": *caller, "contentId": *content, "kind": *kind}
	if *metadata != "" {
		params["metadata"] = *metadata
	}
	if list := splitList(*co); len(list) > 0 {
		params["coAccounts"] = list
	}
	return invoke(stdout, stderr, "promotion_recordInteraction", params, true)
}

func runPromoEnd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("promo end", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "campaign owner")
	content := fs.String("content", "", "content id")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlags(map[string]string{"caller": *caller, "content": *content}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return invoke(stdout, stderr, "promotion_end", map[string]string{"caller": *caller, "contentId": *content}, true)
}

func runPromoGet(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("promo get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	content := fs.String("content", "", "content id")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlags(map[string]string{"content": *content}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return invoke(stdout, stderr, "promotion_get", map[string]string{"contentId": *content}, false)
}

func runPromoBuy(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("promo buy", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "buyer or delegate of the buyer")
	content := fs.String("content", "", "content id")
	recipient := fs.String("recipient", "", "seller")
	amount := fs.String("amount", "", "price")
	referrer := fs.String("referrer", "", "optional referrer")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlags(map[string]string{"caller": *caller, "content": *content, "recipient": *recipient, "amount": *amount}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	params := map[string]string{"caller": *caller, "contentId": *content, "recipient": *recipient, "amount": *amount}
	if *referrer != "" {
		params["referrer"] = *referrer
	}
	return invoke(stdout, stderr, "promotion_buyContent", params, true)
}

func runDelegationCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: media-cli delegation propose|master|withdraw|withdraw-master|master-of")
		return 1
	}
	fs := flag.NewFlagSet("delegation "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "acting account")
	delegate := fs.String("delegate", "", "delegate account")
	master := fs.String("master", "", "master account")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	var (
		method string
		params map[string]string
		need   map[string]string
		auth   = true
	)
	switch args[0] {
	case "propose":
		method, params = "delegation_proposeDelegation", map[string]string{"caller": *caller, "delegate": *delegate}
		need = params
	case "master":
		method, params = "delegation_proposeMaster", map[string]string{"caller": *caller, "master": *master}
		need = params
	case "withdraw":
		method, params = "delegation_withdrawDelegation", map[string]string{"caller": *caller, "delegate": *delegate}
		need = params
	case "withdraw-master":
		method, params = "delegation_withdrawMaster", map[string]string{"caller": *caller}
		need = params
	case "master-of":
		method, params = "delegation_masterOf", map[string]string{"account": *delegate}
		need, auth = map[string]string{"delegate": *delegate}, false
	default:
		fmt.Fprintf(stderr, "Unknown delegation subcommand: %s\n", args[0])
		return 1
	}
	if err := requireFlags(need); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return invoke(stdout, stderr, method, params, auth)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
