package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/reckon"
	"github.com/google/subcommands"
)

// normalizeCmd holds the flags for the 'normalize' subcommand.
type normalizeCmd struct {
	bank     string
	account  string
	currency string
}

func (*normalizeCmd) Name() string     { return "normalize" }
func (*normalizeCmd) Synopsis() string { return "convert a bank statement into canonical JSON lines" }
func (*normalizeCmd) Usage() string {
	return `rk normalize [-bank <bank>] [-account <account>] <statement>

  Prints one canonical JSON object per transaction of the statement. The
  output is read back by rk reconcile with the "canonical" bank.

  Malformed rows are reported on stderr and make the command fail.
`
}

func (c *normalizeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.bank, "bank", "auto", "Bank preset, auto, canonical or a YAML format file")
	f.StringVar(&c.account, "account", "", "Account name, defaults to the file name")
	f.StringVar(&c.currency, "currency", envOr(EnvCurrency, "AUD"), "Currency of statements without a currency column")
}

func (c *normalizeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one statement file is required")
		return subcommands.ExitUsageError
	}
	name := f.Arg(0)
	account := c.account
	if account == "" {
		account = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}

	txs, errs, err := loadStatement(accountSpec{Bank: c.bank, Account: account, File: name}, c.currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading statement %q: %v\n", name, err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(stdout)
	for _, tx := range txs {
		if err := enc.Encode(reckon.CanonicalRow(tx)); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding transaction %s: %v\n", tx.ID(), err)
			return subcommands.ExitFailure
		}
	}

	for _, err := range errs {
		fmt.Fprintln(os.Stderr, err)
	}
	if len(errs) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
