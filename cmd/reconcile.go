package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/etnz/reckon"
	"github.com/etnz/reckon/renderer"
	"github.com/google/subcommands"
)

// reconcileCmd holds the flags for the 'reconcile' subcommand.
type reconcileCmd struct {
	accounts  stringList
	accept    stringList
	reject    stringList
	currency  string
	match     matchSettings
	json      bool
	gst       bool
	gstConfig string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "pair transfers between accounts and list external transactions" }
func (*reconcileCmd) Usage() string {
	return `rk reconcile -a BANK:ACCOUNT:FILE [-a ...] [-accept <pair>] [-reject <pair>] [-gst] [-json]

  Reads the statement of each account, pairs the transfers between them and
  lists the remaining transactions as external incoming or outgoing.

  BANK is a bank preset, "auto" to detect the columns, "canonical" for the
  output of rk normalize, or a YAML format file.

  Doubtful pairs are confirmed with -accept or refused with -reject, using
  the pair id of a previous run. Pair ids do not change between runs on the
  same statements.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.accounts, "a", "Account statement as BANK:ACCOUNT:FILE, repeat for each account")
	f.Var(&c.accept, "accept", "Accept the doubtful pair with this id, can be repeated")
	f.Var(&c.reject, "reject", "Reject the doubtful pair with this id, can be repeated")
	f.StringVar(&c.currency, "currency", envOr(EnvCurrency, "AUD"), "Currency of statements without a currency column")
	f.StringVar(&c.match.configFile, "config", "", "Match config YAML file, defaults to $"+EnvMatchConfig)
	f.IntVar(&c.match.window, "window", -1, "Maximum days between the two sides of a transfer, defaults to $"+EnvWindowDays+" or 3")
	f.StringVar(&c.match.tolerance, "tolerance", "", "Maximum amount difference of a transfer, defaults to $"+EnvTolerance+" or 0")
	f.IntVar(&c.match.workers, "workers", -1, "Number of goroutines scoring candidates")
	f.BoolVar(&c.json, "json", false, "Print the result as JSON")
	f.BoolVar(&c.gst, "gst", false, "Annotate external transactions with their GST category")
	f.StringVar(&c.gstConfig, "gst-config", "", "GST config YAML file, implies -gst")
}

func (c *reconcileCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if len(c.accounts) == 0 {
		fmt.Fprintln(os.Stderr, "at least one account is required, use -a BANK:ACCOUNT:FILE")
		return subcommands.ExitUsageError
	}
	cfg, err := c.match.resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in match config: %v\n", err)
		return subcommands.ExitUsageError
	}

	var statements [][]reckon.Transaction
	for _, a := range c.accounts {
		spec, err := parseAccountSpec(a)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		txs, errs, err := loadStatement(spec, c.currency)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading statement %q: %v\n", spec.File, err)
			return subcommands.ExitFailure
		}
		for _, err := range errs {
			slog.Warn("row skipped", "account", spec.Account, "error", err)
		}
		statements = append(statements, txs)
	}

	result, err := reckon.Reconcile(statements, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reconciling: %v\n", err)
		return subcommands.ExitFailure
	}
	slog.Info("reconciled", "matched", len(result.Matched), "doubtful", len(result.Doubtful), "external", len(result.External))

	for _, confirmation := range []struct {
		ids    stringList
		accept bool
	}{{c.accept, true}, {c.reject, false}} {
		for _, id := range confirmation.ids {
			if result, err = reckon.ConfirmPair(result, id, confirmation.accept); err != nil {
				fmt.Fprintf(os.Stderr, "Error confirming pair %q: %v\n", id, err)
				return subcommands.ExitFailure
			}
		}
	}

	var gst []reckon.GSTLine
	if c.gst || c.gstConfig != "" {
		gstCfg, err := c.loadGSTConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading GST config: %v\n", err)
			return subcommands.ExitFailure
		}
		gst = reckon.AnnotateGST(result, gstCfg)
	}

	if c.json {
		out := struct {
			Reconciliation *reckon.ReconciliationResult `json:"reconciliation"`
			GST            []reckon.GSTLine             `json:"gst,omitempty"`
		}{result, gst}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	printMarkdown(renderer.RenderReconciliation(renderer.NewReconciliation(result, gst)))
	return subcommands.ExitSuccess
}

func (c *reconcileCmd) loadGSTConfig() (reckon.GSTConfig, error) {
	if c.gstConfig == "" {
		return reckon.DefaultGSTConfig(), nil
	}
	f, err := os.Open(c.gstConfig)
	if err != nil {
		return reckon.GSTConfig{}, err
	}
	defer f.Close()
	return reckon.LoadGSTConfig(f)
}
