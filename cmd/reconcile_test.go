package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"strings"
	"testing"

	"github.com/google/subcommands"
)

// reconcileOutput is the part of the JSON output checked by the tests.
type reconcileOutput struct {
	Reconciliation struct {
		Matched []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"matched"`
		Doubtful []struct {
			ID string `json:"id"`
		} `json:"doubtful"`
		External []struct {
			ID string `json:"id"`
		} `json:"external"`
	} `json:"reconciliation"`
	GST []struct {
		ID       string `json:"id"`
		Category string `json:"category"`
	} `json:"gst"`
}

func runReconcile(t *testing.T, args ...string) (reconcileOutput, subcommands.ExitStatus) {
	t.Helper()
	out := captureOutput(t)
	cmd := &reconcileCmd{}
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	cmd.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("Parse(%q) error = %v", args, err)
	}
	status := cmd.Execute(context.Background(), f)

	var res reconcileOutput
	if status == subcommands.ExitSuccess && cmd.json {
		if err := json.Unmarshal(out.Bytes(), &res); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, out.String())
		}
	}
	return res, status
}

func TestReconcileCmd(t *testing.T) {
	everyday := createTempFile(t, "everyday.csv", everydayCSV)
	savings := createTempFile(t, "savings.csv", savingsCSV)

	res, status := runReconcile(t, "-a", "CBA:everyday:"+everyday, "-a", "ING:savings:"+savings, "-json", "-gst")
	if status != subcommands.ExitSuccess {
		t.Fatalf("Expected ExitSuccess, got %v", status)
	}
	if got, want := len(res.Reconciliation.Matched), 1; got != want {
		t.Fatalf("len(matched) = %d, want %d", got, want)
	}
	if got, want := res.Reconciliation.Matched[0].Status, "matched"; got != want {
		t.Errorf("status = %q, want %q", got, want)
	}
	if got, want := len(res.Reconciliation.External), 2; got != want {
		t.Errorf("len(external) = %d, want %d", got, want)
	}
	if got, want := len(res.GST), 2; got != want {
		t.Fatalf("len(gst) = %d, want %d", got, want)
	}
	categories := map[string]string{}
	for _, l := range res.GST {
		categories[l.ID] = l.Category
	}
	if got, want := categories["savings#1"], "Interest Income"; got != want {
		t.Errorf("category of savings#1 = %q, want %q", got, want)
	}
}

func TestReconcileCmd_Markdown(t *testing.T) {
	everyday := createTempFile(t, "everyday.csv", everydayCSV)
	savings := createTempFile(t, "savings.csv", savingsCSV)

	out := captureOutput(t)
	cmd := &reconcileCmd{}
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	cmd.SetFlags(f)
	if err := f.Parse([]string{"-a", "CBA:everyday:" + everyday, "-a", "auto:savings:" + savings}); err != nil {
		t.Fatal(err)
	}
	if status := cmd.Execute(context.Background(), f); status != subcommands.ExitSuccess {
		t.Fatalf("Expected ExitSuccess, got %v", status)
	}
	for _, want := range []string{"# Reconciliation", "Transfers", "External Outgoing", "Coffee shop"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out.String())
		}
	}
}

func TestReconcileCmd_Reject(t *testing.T) {
	// the transfer is 3 days apart and named after neither account: doubtful.
	everyday := createTempFile(t, "everyday.csv", "Date,Description,Amount\n01/03/2024,Payment,-500.00\n")
	savings := createTempFile(t, "savings.csv", "Date,Description,Amount\n04/03/2024,Deposit,500.00\n")
	accounts := []string{"-a", "CBA:everyday:" + everyday, "-a", "CBA:savings:" + savings, "-json"}

	res, status := runReconcile(t, accounts...)
	if status != subcommands.ExitSuccess {
		t.Fatalf("Expected ExitSuccess, got %v", status)
	}
	if got, want := len(res.Reconciliation.Doubtful), 1; got != want {
		t.Fatalf("len(doubtful) = %d, want %d", got, want)
	}
	id := res.Reconciliation.Doubtful[0].ID

	res, status = runReconcile(t, append(accounts, "-reject", id)...)
	if status != subcommands.ExitSuccess {
		t.Fatalf("Expected ExitSuccess, got %v", status)
	}
	if got, want := len(res.Reconciliation.External), 2; got != want {
		t.Errorf("len(external) after reject = %d, want %d", got, want)
	}

	res, status = runReconcile(t, append(accounts, "-accept", id)...)
	if status != subcommands.ExitSuccess {
		t.Fatalf("Expected ExitSuccess, got %v", status)
	}
	if got, want := len(res.Reconciliation.Matched), 1; got != want {
		t.Errorf("len(matched) after accept = %d, want %d", got, want)
	}

	if _, status := runReconcile(t, append(accounts, "-accept", "not-a-pair")...); status != subcommands.ExitFailure {
		t.Errorf("accepting an unknown pair: got %v, want ExitFailure", status)
	}
}

func TestReconcileCmd_UsageErrors(t *testing.T) {
	everyday := createTempFile(t, "everyday.csv", everydayCSV)
	testCases := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"no account", nil, subcommands.ExitUsageError},
		{"malformed account", []string{"-a", "CBA:" + everyday}, subcommands.ExitUsageError},
		{"invalid window", []string{"-a", "CBA:x:" + everyday, "-window", "2", "-tolerance", "abc"}, subcommands.ExitUsageError},
		{"unknown bank", []string{"-a", "NOPE:x:" + everyday}, subcommands.ExitFailure},
		{"missing file", []string{"-a", "CBA:x:" + everyday + ".missing"}, subcommands.ExitFailure},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, got := runReconcile(t, tc.args...); got != tc.want {
				t.Errorf("status = %v, want %v", got, tc.want)
			}
		})
	}
}
