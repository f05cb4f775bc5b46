// troupe-admin applies a finance patch through the dashboard
// reconciliation flow from the command line.
//
// Usage:
//
//	troupe-admin -kind payment -id p1 status=approved
//	troupe-admin -kind budget -id b1 allocatedBudget=2500.00
//
// Money fields take decimal amounts and are converted to cents before
// the patch is sent.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"troupe/internal/config"
	"troupe/internal/core"
	"troupe/internal/dashboard"
	"troupe/internal/gateway"
	applog "troupe/internal/log"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: "troupe-admin"})
	applog.SetDefault(logger)

	var (
		baseURL = flag.String("base-url", "", "API base URL (defaults to GATEWAY_BASE_URL)")
		kind    = flag.String("kind", "", "entity kind: invoice, payment, refund, or budget")
		id      = flag.String("id", "", "entity ID")
		timeout = flag.Duration("timeout", 10*time.Second, "request timeout")
	)
	flag.Parse()

	cfg := config.Load()
	if *baseURL == "" {
		*baseURL = cfg.GatewayBaseURL
	}

	if !dashboard.Kind(*kind).IsValid() {
		fatalf("unknown kind %q, want invoice, payment, refund, or budget", *kind)
	}
	if *id == "" {
		fatalf("missing -id")
	}
	if flag.NArg() == 0 {
		fatalf("no patch fields given, pass field=value arguments")
	}

	patch := dashboard.Patch{}
	for _, arg := range flag.Args() {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			fatalf("malformed patch argument %q, want field=value", arg)
		}
		patch[field] = parseValue(field, value)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := gateway.NewClient(*baseURL)

	agg, err := client.Dashboard(ctx)
	if err != nil {
		fatalf("fetch dashboard: %v", err)
	}

	rec := dashboard.NewReconciler(client)
	next, err := rec.Reconcile(ctx, agg, dashboard.Kind(*kind), *id, patch)
	if err != nil {
		fatalf("reconcile: %v", err)
	}

	out, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		fatalf("encode aggregate: %v", err)
	}
	fmt.Println(string(out))
}

// moneyFields are patch fields given as decimal amounts on the
// command line, e.g. amount=12.34.
var moneyFields = map[string]bool{
	"amount":          true,
	"refundAmount":    true,
	"allocatedBudget": true,
	"currentSpend":    true,
}

// parseValue keeps the same shapes JSON decoding would produce, so
// the patch travels through the reconciler unchanged. Money fields
// are parsed as decimal amounts and carried as cents.
func parseValue(field, s string) any {
	if moneyFields[field] {
		if cents, err := core.ParseDecimalToCents(s); err == nil {
			return cents
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
