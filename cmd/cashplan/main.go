package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"cashplan/internal/cli"
	"cashplan/internal/config"
	"cashplan/internal/core"
	"cashplan/internal/log"
	"cashplan/internal/matching"
	"cashplan/internal/services"
	"cashplan/internal/store"
	"cashplan/internal/workspace"
)

type app struct {
	cfg    *config.Config
	logger *log.Logger
	store  store.Store
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	run, ok := commands[cmd]
	if !ok {
		if cmd == "help" || cmd == "-h" || cmd == "--help" {
			printUsage()
			return
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stderr, cfg.LogLevel)

	ctx, cancel := cli.SignalContext()
	defer cancel()

	st, cleanup, err := cli.InitStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, logger: logger, store: st}
	err = run(ctx, a, os.Args[2:])
	cleanup()
	if err != nil {
		logger.Error("Command failed", "command", cmd, log.FieldError, err)
		os.Exit(1)
	}
}

var commands = map[string]func(context.Context, *app, []string) error{
	"import":      runImport,
	"report":      runReport,
	"load":        runLoad,
	"export":      runExport,
	"add-line":    runAddLine,
	"delete-line": runDeleteLine,
	"reassign":    runReassign,
}

func printUsage() {
	fmt.Println("cashplan - personal cashflow planning")
	fmt.Println("\nUsage:")
	fmt.Println("  cashplan <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import       Reconcile a bank statement against a workspace")
	fmt.Println("  report       Project, compare and forecast a workspace")
	fmt.Println("  load         Load a workspace document (v1 or v2, JSON or YAML)")
	fmt.Println("  export       Export a workspace as a v2 document")
	fmt.Println("  add-line     Create a line item, or replace one with -id")
	fmt.Println("  delete-line  Delete a line item, unlinking its actuals")
	fmt.Println("  reassign     Link an actual to a line item by hand")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cashplan <command> -h' for more information on a command.")
}

func (a *app) importService() *services.ImportService {
	return services.NewImportService(a.store, services.ImportConfig{
		MaxFileBytes: a.cfg.ImportMaxFileBytes,
		Matching: matching.Options{
			FuzzyThreshold:  a.cfg.MatchFuzzyThreshold,
			AmountTolerance: a.cfg.MatchAmountTolerance,
		},
	}, a.logger)
}

func runImport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	wsID := fs.String("workspace", "", "Workspace ID")
	file := fs.String("file", "", "Statement file (.csv, .txt, .json, .xlsx, .xlsm, .xls)")
	confirm := fs.Bool("confirm", false, "Persist approved matches")
	acceptAll := fs.Bool("accept-all", false, "Approve every row before confirming")
	asJSON := fs.Bool("json", false, "Print the preview as JSON")
	fs.Parse(args)

	if *wsID == "" || *file == "" {
		return fmt.Errorf("usage: cashplan import -workspace ID -file PATH [-confirm] [-accept-all]")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	svc := a.importService()
	preview, err := svc.Preview(ctx, *wsID, *file, f)
	if err != nil {
		return err
	}

	if *asJSON {
		if err := writeJSON(os.Stdout, preview); err != nil {
			return err
		}
	} else {
		printPreview(os.Stdout, preview)
	}

	if !*confirm {
		return nil
	}
	if *acceptAll {
		for i := range preview.Matches {
			preview.Matches[i].Approved = true
		}
	}
	res, err := svc.Confirm(ctx, *wsID, preview.Matches)
	if err != nil {
		return err
	}
	fmt.Printf("\nSaved %d actuals, skipped %d unapproved rows.\n", len(res.Saved), res.Skipped)
	return nil
}

func printPreview(w io.Writer, p services.Preview) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAMOUNT\tDESCRIPTION\tLINE ITEM\tCONFIDENCE\tAPPROVED")
	for _, m := range p.Matches {
		line := "-"
		if m.LineItem != nil {
			line = m.LineItem.Description
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			m.Row.Date, m.Row.Amount.StringFixed(2), m.Row.Description, line, m.Confidence, m.Approved)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nDate format: %s\n", p.DateFormat)
	for _, c := range []core.MatchConfidence{core.ConfidenceHigh, core.ConfidenceMedium, core.ConfidenceLow, core.ConfidenceUnmatched} {
		fmt.Fprintf(w, "%-10s %d\n", c, p.Summary[c])
	}
	if len(p.Duplicates) > 0 {
		fmt.Fprintf(w, "Skipped %d rows already imported.\n", len(p.Duplicates))
	}
	for _, e := range p.Errors {
		fmt.Fprintf(w, "Row error: %s\n", e.Error())
	}
}

func runReport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	wsID := fs.String("workspace", "", "Workspace ID")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	todayFlag := fs.String("today", "", "Override today's date (YYYY-MM-DD)")
	fs.Parse(args)

	if *wsID == "" {
		return fmt.Errorf("usage: cashplan report -workspace ID [-json] [-today YYYY-MM-DD]")
	}
	now := time.Now()
	if *todayFlag != "" {
		d, err := core.ParseDate(*todayFlag)
		if err != nil {
			return fmt.Errorf("invalid -today: %w", err)
		}
		now = d.Time
	}

	svc := services.NewPlanService(a.store, services.PlanConfig{
		CacheSize: a.cfg.ProjectionCacheSize,
		CacheTTL:  a.cfg.ProjectionCacheTTL,
	}, a.logger)
	rep, err := svc.Report(ctx, *wsID, now)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(os.Stdout, rep)
	}
	printReport(os.Stdout, rep)
	return nil
}

func printReport(w io.Writer, rep services.Report) {
	fmt.Fprintf(w, "%s (%s) %s to %s\n\n", rep.Workspace.Name, rep.Workspace.Mode, rep.Horizon.Start, rep.Horizon.End)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TAG\tBUDGETED\tACTUAL\tVARIANCE\tDIRECTION\t")
	for _, t := range rep.Variance.Tags {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", t.Tag,
			t.Budgeted.StringFixed(2), t.Actual.StringFixed(2), t.Variance.StringFixed(2), t.Direction)
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\t%s\t\n", rep.Variance.TotalBudgeted.StringFixed(2),
		rep.Variance.TotalActual.StringFixed(2), rep.Variance.TotalVariance.StringFixed(2), rep.Variance.Direction)
	tw.Flush()
	fmt.Fprintln(w)

	switch {
	case rep.Cashflow != nil:
		cf := rep.Cashflow
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSE\tNET\tCLOSING\t")
		for _, m := range cf.Months {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", m.Month, m.EffectiveIncome.StringFixed(2),
				m.EffectiveExpense.StringFixed(2), m.Net.StringFixed(2), m.ClosingBalance.StringFixed(2))
		}
		tw.Flush()
		fmt.Fprintf(w, "\nLowest balance %s in %s\n", cf.LowestBalance.StringFixed(2), cf.LowestBalanceMonth)
		if cf.WillGoNegative {
			fmt.Fprintf(w, "Balance goes negative around %s\n", cf.ZeroCrossingDate)
		}
	case rep.Envelope != nil:
		env := rep.Envelope
		fmt.Fprintf(w, "Budget %s, spent %s, remaining %s\n", env.TotalBudget.StringFixed(2),
			env.TotalSpent.StringFixed(2), env.Remaining.StringFixed(2))
		if env.BurnRate != nil {
			fmt.Fprintf(w, "Burn rate %s/day over %d days\n", env.BurnRate.StringFixed(2), env.DaysCovered)
		}
		switch {
		case env.AlreadyDepleted:
			fmt.Fprintln(w, "Budget already depleted")
		case env.DepletionDate != nil:
			fmt.Fprintf(w, "Depletes on %s\n", env.DepletionDate)
		}
	}
}

func runLoad(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	file := fs.String("file", "", "Workspace document (.json, .yaml, .yml)")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("usage: cashplan load -file PATH")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	res, err := services.NewWorkspaceService(a.store, a.logger).Load(ctx, data, workspace.FormatFromFilename(*file))
	if err != nil {
		return err
	}
	fmt.Printf("Loaded workspace %s: %d line items, %d actuals added, %d already present.\n",
		res.Workspace.ID, res.LineItems, res.ActualsAdded, res.ActualsExisting)
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	wsID := fs.String("workspace", "", "Workspace ID")
	formatFlag := fs.String("format", "json", "Output format: json or yaml")
	out := fs.String("out", "", "Output file (defaults to stdout)")
	fs.Parse(args)

	if *wsID == "" {
		return fmt.Errorf("usage: cashplan export -workspace ID [-format json|yaml] [-out PATH]")
	}
	format, err := workspace.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}
	data, err := services.NewWorkspaceService(a.store, a.logger).Export(ctx, *wsID, format)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(*out, data, 0644)
}

const addLineUsage = "usage: cashplan add-line -workspace ID -description TEXT -amount N -type income|expense " +
	"-frequency F -start YYYY-MM-DD [-end YYYY-MM-DD] [-tags a,b] [-id ID]"

func runAddLine(ctx context.Context, a *app, args []string) error {
	wsID, li, err := parseLineItem(args)
	if err != nil {
		return err
	}
	saved, err := services.NewLineItemService(a.store, a.logger).Save(ctx, wsID, li)
	if err != nil {
		return err
	}
	fmt.Printf("Saved line item %s (%s %s %s).\n", saved.ID, saved.Frequency, saved.Type, saved.Amount.StringFixed(2))
	return nil
}

// parseLineItem reads add-line flags into a line item. Field validation is
// left to the store.
func parseLineItem(args []string) (string, core.LineItem, error) {
	fs := flag.NewFlagSet("add-line", flag.ContinueOnError)
	wsID := fs.String("workspace", "", "Workspace ID")
	id := fs.String("id", "", "Line item ID to replace (new when empty)")
	desc := fs.String("description", "", "Description")
	amount := fs.String("amount", "", "Amount per occurrence")
	typ := fs.String("type", string(core.Expense), "income or expense")
	freq := fs.String("frequency", string(core.Monthly), "once-off, daily, weekly, monthly, quarterly or annually")
	start := fs.String("start", "", "Start date (YYYY-MM-DD)")
	end := fs.String("end", "", "End date (YYYY-MM-DD), open-ended when empty")
	tags := fs.String("tags", "", "Comma-separated tags, first is the primary")
	if err := fs.Parse(args); err != nil {
		return "", core.LineItem{}, err
	}
	if *wsID == "" || *desc == "" || *amount == "" || *start == "" {
		return "", core.LineItem{}, fmt.Errorf("%s", addLineUsage)
	}

	amt, err := core.ParseAmount(*amount)
	if err != nil {
		return "", core.LineItem{}, fmt.Errorf("invalid -amount: %w", err)
	}
	startDate, err := core.ParseDate(*start)
	if err != nil {
		return "", core.LineItem{}, fmt.Errorf("invalid -start: %w", err)
	}
	li := core.LineItem{
		ID:          *id,
		Description: *desc,
		Tags:        []string{},
		Amount:      amt,
		Frequency:   core.Frequency(strings.ToLower(*freq)),
		Type:        core.ItemType(strings.ToLower(*typ)),
		StartDate:   startDate,
	}
	if *end != "" {
		endDate, err := core.ParseDate(*end)
		if err != nil {
			return "", core.LineItem{}, fmt.Errorf("invalid -end: %w", err)
		}
		li.EndDate = &endDate
	}
	for _, t := range strings.Split(*tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			li.Tags = append(li.Tags, t)
		}
	}
	return *wsID, li, nil
}

func runDeleteLine(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("delete-line", flag.ExitOnError)
	id := fs.String("id", "", "Line item ID")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("usage: cashplan delete-line -id ID")
	}
	cleared, err := services.NewLineItemService(a.store, a.logger).Delete(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted line item %s, unlinked %d actuals.\n", *id, cleared)
	return nil
}

func runReassign(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("reassign", flag.ExitOnError)
	actualID := fs.String("actual", "", "Actual ID")
	lineID := fs.String("line", "", "Line item ID (empty to unlink)")
	fs.Parse(args)

	if *actualID == "" {
		return fmt.Errorf("usage: cashplan reassign -actual ID [-line ID]")
	}
	act, err := a.importService().Reassign(ctx, *actualID, *lineID)
	if err != nil {
		return err
	}
	fmt.Printf("Actual %s is now %s.\n", act.ID, act.MatchConfidence)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
