package renderer

import (
	"io/fs"
	"strings"
	"testing"
	"text/template"
	"time"

	"github.com/etnz/reckon"
	"github.com/etnz/reckon/date"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// outline is what a rendered markdown document is made of.
type outline struct {
	headings []string
	rows     map[string]int // number of body rows, header excluded, by preceding heading.
}

// parseOutline parses markdown with the GFM table extension and returns its
// headings and table sizes.
func parseOutline(t *testing.T, md string) outline {
	t.Helper()
	source := []byte(md)
	root := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(source))

	o := outline{rows: make(map[string]int)}
	var current string
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading:
			current = string(n.Text(source))
			o.headings = append(o.headings, current)
		case extast.KindTableRow:
			o.rows[current]++
		}
		return ast.WalkContinue, nil
	})
	return o
}

func (o outline) has(heading string) bool {
	for _, h := range o.headings {
		if h == heading {
			return true
		}
	}
	return false
}

func aud(v float64) reckon.Money { return reckon.M(v, "AUD") }

func transaction(account string, seq int, on date.Date, amount float64, description string) reckon.Transaction {
	return reckon.Transaction{Account: account, Seq: seq, Timestamp: on.Time(), Amount: aud(amount), Description: description}
}

func TestRenderReconciliation(t *testing.T) {
	on := date.New(2024, time.March, 1)
	savings := []reckon.Transaction{
		transaction("Savings", 0, on, -200, "Transfer to Everyday"),
		transaction("Savings", 1, on.Add(4), -1000, "Transfer"),
		transaction("Savings", 2, on.Add(10), 110, "Invoice | 42"),
	}
	everyday := []reckon.Transaction{
		transaction("Everyday", 0, on, 200, "From Savings"),
		transaction("Everyday", 1, on.Add(6), 1000, "Deposit"),
		transaction("Everyday", 2, on.Add(7), -30, "Groceries"),
	}
	result, err := reckon.Reconcile([][]reckon.Transaction{savings, everyday}, reckon.DefaultMatchConfig())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	gst := reckon.AnnotateGST(result, reckon.DefaultGSTConfig())

	md := RenderReconciliation(NewReconciliation(result, gst))
	o := parseOutline(t, md)

	for _, h := range []string{"Reconciliation", "Transfers", "Doubtful Transfers", "External Incoming", "External Outgoing", "GST"} {
		if !o.has(h) {
			t.Errorf("RenderReconciliation() has no %q heading:\n%s", h, md)
		}
	}
	for heading, want := range map[string]int{"Transfers": 1, "Doubtful Transfers": 1, "External Incoming": 1, "External Outgoing": 1} {
		if got := o.rows[heading]; got != want {
			t.Errorf("rows under %q = %d, want %d:\n%s", heading, got, want, md)
		}
	}
	if !strings.Contains(md, result.Doubtful[0].ID) {
		t.Errorf("RenderReconciliation() does not show the doubtful pair id %s", result.Doubtful[0].ID)
	}
	if !strings.Contains(md, `Invoice \| 42`) {
		t.Errorf("RenderReconciliation() does not escape pipes in descriptions:\n%s", md)
	}
}

func TestRenderReconciliation_WithoutGST(t *testing.T) {
	result, err := reckon.Reconcile(nil, reckon.DefaultMatchConfig())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	md := RenderReconciliation(NewReconciliation(result, nil))
	o := parseOutline(t, md)
	if got, want := len(o.headings), 1; got != want {
		t.Errorf("RenderReconciliation() headings = %v, want only the title", o.headings)
	}
	if !strings.Contains(md, "0 transfers matched, 0 doubtful, 0 external transactions.") {
		t.Errorf("RenderReconciliation() = %q", md)
	}
}

func TestRenderReconciliation_GSTPerCurrency(t *testing.T) {
	on := date.New(2024, time.March, 1)
	sale := transaction("Wise", 0, on, 110, "Product sale")
	sale.Amount = reckon.M(110, "USD")
	accounts := [][]reckon.Transaction{
		{transaction("Everyday", 0, on, 220, "Invoice 12")},
		{sale},
	}
	result, err := reckon.Reconcile(accounts, reckon.DefaultMatchConfig())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	gst := reckon.AnnotateGST(result, reckon.DefaultGSTConfig())

	md := RenderReconciliation(NewReconciliation(result, gst))
	o := parseOutline(t, md)
	if got, want := o.rows["GST"], 2; got != want {
		t.Errorf("rows under %q = %d, want %d:\n%s", "GST", got, want, md)
	}
	for _, want := range []string{"| AUD |", "| USD |"} {
		if !strings.Contains(md, want) {
			t.Errorf("RenderReconciliation() has no %q GST total:\n%s", want, md)
		}
	}
}

func TestRenderGains(t *testing.T) {
	trades := []reckon.Trade{
		reckon.NewBuy(date.New(2023, time.January, 1), "XYZ", reckon.Q(10), aud(100)),
		reckon.NewSell(date.New(2024, time.February, 1), "XYZ", reckon.Q(4), aud(60)),
		reckon.NewSell(date.New(2024, time.February, 1), "NONE", reckon.Q(1), aud(60)),
	}
	rules := reckon.AustralianRules()
	rate := reckon.Q(0.3).Decimal()
	rules.MarginalTaxRate = &rate
	report, err := reckon.ComputeGains(trades, rules)
	if err != nil {
		t.Fatalf("ComputeGains() error = %v", err)
	}

	t.Run("full", func(t *testing.T) {
		md := RenderGains(NewGains(report), GainsRenderOptions{})
		o := parseOutline(t, md)
		for _, h := range []string{"Capital Gains", "Tax Years", "Tax Year 2024", "Errors"} {
			if !o.has(h) {
				t.Errorf("RenderGains() has no %q heading:\n%s", h, md)
			}
		}
		if got, want := o.rows["Tax Years"], 1; got != want {
			t.Errorf("rows under Tax Years = %d, want %d:\n%s", got, want, md)
		}
		if got, want := o.rows["Tax Year 2024"], 1; got != want {
			t.Errorf("rows under Tax Year 2024 = %d, want %d:\n%s", got, want, md)
		}
		if !strings.Contains(md, "Estimated Tax") {
			t.Errorf("RenderGains() has no estimated tax column:\n%s", md)
		}
		if !strings.Contains(md, "AU, 50% discount after 365 days, fifo") {
			t.Errorf("RenderGains() does not describe the rules:\n%s", md)
		}
	})

	t.Run("skip records", func(t *testing.T) {
		md := RenderGains(NewGains(report), GainsRenderOptions{SkipRecords: true})
		if parseOutline(t, md).has("Tax Year 2024") {
			t.Errorf("RenderGains(SkipRecords) renders records:\n%s", md)
		}
	})
}

func TestTemplatesParse(t *testing.T) {
	files, err := fs.Glob(templates, "*.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no embedded template")
	}
	for _, file := range files {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			t.Fatalf("failed to read template file %q: %v", file, err)
		}
		if _, err := template.New(file).Parse(string(content)); err != nil {
			t.Errorf("failed to parse template %q: %v", file, err)
		}
	}
}
