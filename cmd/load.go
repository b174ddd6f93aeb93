package cmd

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/etnz/reckon"
)

// readRows reads a statement or a trade ledger. Files ending in .json or
// .jsonl hold JSON objects, any other file is a CSV with a header line.
// The header lists the columns, for format detection.
func readRows(name string) (header []string, rows []reckon.Row, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".jsonl":
		rows, err = decodeJSONRows(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(rows) > 0 {
			header = slices.Sorted(maps.Keys(rows[0]))
		}
	default:
		header, rows, err = decodeCSVRows(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	slog.Debug("rows read", "file", name, "rows", len(rows))
	return header, rows, nil
}

// decodeCSVRows reads a CSV with a header line. Rows may have fewer fields
// than the header, missing cells are absent from the row.
func decodeCSVRows(r io.Reader) ([]string, []reckon.Row, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []reckon.Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return header, rows, nil
		}
		if err != nil {
			return nil, nil, err
		}
		row := make(reckon.Row, len(header))
		for i, v := range record {
			if i < len(header) {
				row[header[i]] = v
			}
		}
		rows = append(rows, row)
	}
}

// decodeJSONRows reads either a JSON array of objects or a stream of
// objects, one per line. Numbers are kept as json.Number so that amounts
// never go through a float.
func decodeJSONRows(r io.Reader) ([]reckon.Row, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()
	if first == '[' {
		var rows []reckon.Row
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("could not decode rows: %w", err)
		}
		return rows, nil
	}

	var rows []reckon.Row
	for {
		var row reckon.Row
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("could not decode row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}
}

// peekNonSpace returns the first non blank byte without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if len(bytes.TrimSpace(b)) > 0 {
			return b[0], nil
		}
		if _, err := br.ReadByte(); err != nil {
			return 0, err
		}
	}
}

// statementFormat selects how to read a statement of bank:
//   - a .yaml or .yml file holds a custom format,
//   - "canonical" reads the output of rk normalize,
//   - "auto" or "" detects the columns from the header,
//   - anything else is a bank preset.
func statementFormat(bank string, header []string, currency string) (reckon.Format, error) {
	switch ext := strings.ToLower(filepath.Ext(bank)); {
	case ext == ".yaml" || ext == ".yml":
		f, err := os.Open(bank)
		if err != nil {
			return reckon.Format{}, err
		}
		defer f.Close()
		return reckon.LoadFormat(f)
	case strings.EqualFold(bank, "canonical"):
		return reckon.CanonicalFormat, nil
	case bank == "" || strings.EqualFold(bank, "auto"):
		f := reckon.DetectFormat(header, currency)
		slog.Debug("format detected", "date", f.Date, "amount", f.Amount, "debit", f.Debit, "credit", f.Credit, "description", f.Description)
		return f, f.Validate()
	}
	f, ok := reckon.Preset(bank)
	if !ok {
		return reckon.Format{}, fmt.Errorf("unknown bank %q, want one of %s, auto, canonical or a format file", bank, strings.Join(reckon.Presets(), ", "))
	}
	return f, nil
}

// accountSpec is the -a flag value BANK:ACCOUNT:FILE.
type accountSpec struct {
	Bank, Account, File string
}

func parseAccountSpec(s string) (accountSpec, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return accountSpec{}, fmt.Errorf("invalid account %q want BANK:ACCOUNT:FILE", s)
	}
	return accountSpec{Bank: parts[0], Account: parts[1], File: parts[2]}, nil
}

func (a accountSpec) String() string { return a.Bank + ":" + a.Account + ":" + a.File }

// loadStatement normalizes the statement of an account. Malformed rows are
// returned in errs, an unreadable file or an unusable format is an error.
func loadStatement(a accountSpec, currency string) (txs []reckon.Transaction, errs []error, err error) {
	header, rows, err := readRows(a.File)
	if err != nil {
		return nil, nil, err
	}
	f, err := statementFormat(a.Bank, header, currency)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", a.File, err)
	}
	txs, errs = reckon.NormalizeAll(a.Account, rows, f)
	slog.Info("statement loaded", "account", a.Account, "file", a.File, "transactions", len(txs), "malformed", len(errs))
	return txs, errs, nil
}

// loadTrades normalizes a trade ledger, with the format file if any, or the
// detected columns.
func loadTrades(name, formatFile, base string) (trades []reckon.Trade, errs []error, err error) {
	header, rows, err := readRows(name)
	if err != nil {
		return nil, nil, err
	}
	var f reckon.TradeFormat
	if formatFile != "" {
		r, err := os.Open(formatFile)
		if err != nil {
			return nil, nil, err
		}
		defer r.Close()
		if f, err = reckon.LoadTradeFormat(r); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", formatFile, err)
		}
	} else {
		f = reckon.DetectTradeFormat(header)
	}
	trades, errs = reckon.NormalizeTrades(filepath.Base(name), rows, f, base)
	slog.Info("trades loaded", "file", name, "trades", len(trades), "malformed", len(errs))
	return trades, errs, nil
}

// stringList is a repeatable flag.
type stringList []string

func (l *stringList) String() string     { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error { *l = append(*l, v); return nil }
