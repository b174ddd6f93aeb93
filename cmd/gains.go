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

// gainsCmd holds the flags for the 'gains' subcommand.
type gainsCmd struct {
	rules       string
	format      string
	policy      string
	json        bool
	skipRecords bool
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "realized capital gains per tax year" }
func (*gainsCmd) Usage() string {
	return `rk gains -rules <rules.yaml|AU> [-format <format.yaml>] [-policy <policy>] [-json] <trades.csv>...

  Matches every sale against the open lots of the asset and reports the
  realized gains and losses of each tax year, with the discount and the
  losses carried forward.

  The columns of the trade files are detected from their header, unless a
  trade format file is given.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.rules, "rules", "", "Rule set YAML file, or AU for the built-in Australian rules. Defaults to $"+EnvRules)
	f.StringVar(&c.format, "format", "", "Trade format YAML file")
	f.StringVar(&c.policy, "policy", "", "Override the lot policy of the rule set (fifo, lifo, highest-cost)")
	f.BoolVar(&c.json, "json", false, "Print the report as JSON")
	f.BoolVar(&c.skipRecords, "skip-records", false, "Only print the tax year summaries")
}

func (c *gainsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one trade file is required")
		return subcommands.ExitUsageError
	}

	rules, err := loadRules(c.rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading rule set: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.policy != "" {
		policy, err := reckon.ParseLotPolicy(c.policy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing lot policy: %v\n", err)
			return subcommands.ExitUsageError
		}
		rules.LotPolicy = &policy
	}
	if err := rules.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in rule set: %v\n", err)
		return subcommands.ExitFailure
	}

	var trades []reckon.Trade
	var malformed []error
	for _, name := range f.Args() {
		ts, errs, err := loadTrades(name, c.format, rules.BaseCurrency)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading trades %q: %v\n", name, err)
			return subcommands.ExitFailure
		}
		for _, err := range errs {
			slog.Warn("row skipped", "file", name, "error", err)
		}
		trades = append(trades, ts...)
		malformed = append(malformed, errs...)
	}

	report, err := reckon.ComputeGains(trades, rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing gains: %v\n", err)
		return subcommands.ExitFailure
	}
	report.Errors = append(malformed, report.Errors...)
	slog.Info("gains computed", "trades", len(trades), "disposals", len(report.Disposals), "errors", len(report.Errors))

	if c.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	printMarkdown(renderer.RenderGains(renderer.NewGains(report), renderer.GainsRenderOptions{SkipRecords: c.skipRecords}))
	return subcommands.ExitSuccess
}
