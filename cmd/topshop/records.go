package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/out-of-energy/topshop/internal/config"
	"github.com/out-of-energy/topshop/internal/database"
	"github.com/out-of-energy/topshop/internal/model"
	"github.com/out-of-energy/topshop/internal/report"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored classification records",
		Long: `List shows the latest record of every classified domain, ordered by
domain, one page at a time.

Examples:
  # First page of everything
  topshop list

  # Platform-positive stores in Europe that are not fashion stores
  topshop list --region europe --platform true --category false

  # Third page of 50, as JSON
  topshop list --page 3 --size 50 --json`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}

	cmd.Flags().StringP("region", "r", "", "Only records of this region")
	cmd.Flags().String("platform", "", "Filter by platform verdict (true or false)")
	cmd.Flags().String("category", "", "Filter by category verdict (true or false)")
	cmd.Flags().IntP("page", "p", 1, "Page number, starting at 1")
	cmd.Flags().IntP("size", "s", config.DefaultPageSize,
		fmt.Sprintf("Page size, at most %d", config.MaxPageSize))
	addStoreFlags(cmd)

	return cmd
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <domain>",
		Short: "Show every stored classification of a domain",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryCmd,
	}
	addStoreFlags(cmd)
	return cmd
}

// NewRankCmd creates the rank command.
func NewRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank [region]",
		Short: "Rank stores positive on both platform and category",
		Long: `Rank lists the stored domains of a region that are positive on both
axes and were fetched without error, by category confidence and then
platform confidence, highest first.

Without a region, every region with records is ranked.

Examples:
  topshop rank europe
  topshop rank --limit 25 north_america`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRankCmd,
	}

	cmd.Flags().IntP("limit", "n", config.DefaultRankLimit,
		fmt.Sprintf("Number of ranked stores, at most %d", database.MaxRankLimit))
	addStoreFlags(cmd)

	return cmd
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the record store")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")
}

// openStore opens an existing record store read from the db-dir flag.
func openStore(cmd *cobra.Command) (*database.RecordDB, error) {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w (run \"topshop classify\" first)", err)
	}
	return db, err
}

// parseVerdictFlag reads a tri-state verdict filter. Empty means no filter.
func parseVerdictFlag(cmd *cobra.Command, name string) (*bool, error) {
	s, err := cmd.Flags().GetString(name)
	if err != nil || s == "" {
		return nil, err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value %q: expected true or false", name, s)
	}
	return &v, nil
}

// parseRegionArg accepts region names and their aliases.
func parseRegionArg(s string) (model.Region, error) {
	if s == "" {
		return model.RegionUnknown, nil
	}
	r := model.ParseRegion(s)
	if !r.IsValid() {
		return model.RegionUnknown, fmt.Errorf("%w: %q", config.ErrInvalidRegion, s)
	}
	return r, nil
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	regionFlag, err := cmd.Flags().GetString("region")
	if err != nil {
		return err
	}
	region, err := parseRegionArg(regionFlag)
	if err != nil {
		return err
	}
	platform, err := parseVerdictFlag(cmd, "platform")
	if err != nil {
		return err
	}
	category, err := parseVerdictFlag(cmd, "category")
	if err != nil {
		return err
	}
	page, err := cmd.Flags().GetInt("page")
	if err != nil {
		return err
	}
	size, err := cmd.Flags().GetInt("size")
	if err != nil {
		return err
	}

	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := db.List(cmd.Context(), database.Filter{
		Region:          region,
		PlatformVerdict: platform,
		CategoryVerdict: category,
		Page:            page,
		Size:            size,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(result)
		return err
	}

	pages := (result.Total + result.Size - 1) / result.Size
	fmt.Fprintf(out, "Records %d (page %d of %d):\n\n", result.Total, result.Page, max(pages, 1))
	writeRecordTable(out, result.Records)
	return nil
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	t, err := model.NewTarget(args[0])
	if err != nil {
		return fmt.Errorf("invalid domain %q: %w", args[0], err)
	}

	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.History(cmd.Context(), t.Key())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(records)
		return err
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No records found for %s\n", t.Key())
		return nil
	}
	fmt.Fprintf(out, "History of %s (%d runs):\n\n", t.Key(), len(records))
	fmt.Fprintf(out, "  %-20s  %-8s  %-8s  %-36s  %s\n", "Checked", "Platform", "Category", "Run", "Error")
	for _, rec := range records {
		fmt.Fprintf(out, "  %-20s  %-8s  %-8s  %-36s  %s\n",
			rec.CheckedAt.Local().Format("2006-01-02 15:04:05"),
			verdictCell(rec.PlatformVerdict, rec.PlatformConfidence),
			verdictCell(rec.CategoryVerdict, rec.CategoryConfidence),
			rec.RunID,
			rec.Error,
		)
	}
	return nil
}

func runRankCmd(cmd *cobra.Command, args []string) error {
	var regionArg string
	if len(args) == 1 {
		regionArg = args[0]
	}
	region, err := parseRegionArg(regionArg)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	regions := []model.Region{region}
	if region == model.RegionUnknown {
		if regions, err = db.Regions(ctx); err != nil {
			return err
		}
	}

	rankings := make(map[model.Region][]database.Ranked, len(regions))
	for _, r := range regions {
		ranked, err := db.Rank(ctx, r, limit)
		if err != nil {
			return fmt.Errorf("failed to rank %s: %w", r, err)
		}
		rankings[r] = ranked
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(rankings)
		return err
	}

	if len(regions) == 0 {
		fmt.Fprintln(out, "No records with a region yet.")
		return nil
	}
	for _, r := range regions {
		fmt.Fprintf(out, "Top stores in %s:\n\n", r)
		ranked := rankings[r]
		if len(ranked) == 0 {
			fmt.Fprintln(out, "  none")
			fmt.Fprintln(out)
			continue
		}
		fmt.Fprintf(out, "  %-4s  %-40s  %-8s  %-8s\n", "Rank", "Domain", "Category", "Platform")
		for _, rk := range ranked {
			fmt.Fprintf(out, "  %-4d  %-40s  %-8.2f  %-8.2f\n",
				rk.Rank, rk.Record.Domain, rk.Record.CategoryConfidence, rk.Record.PlatformConfidence)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func writeRecordTable(out io.Writer, records []model.Record) {
	if len(records) == 0 {
		fmt.Fprintln(out, "  none")
		return
	}
	fmt.Fprintf(out, "  %-40s  %-13s  %-8s  %-8s  %s\n", "Domain", "Region", "Platform", "Category", "Checked")
	for _, rec := range records {
		fmt.Fprintf(out, "  %-40s  %-13s  %-8s  %-8s  %s\n",
			rec.Domain,
			rec.Region,
			verdictCell(rec.PlatformVerdict, rec.PlatformConfidence),
			verdictCell(rec.CategoryVerdict, rec.CategoryConfidence),
			rec.CheckedAt.Local().Format("2006-01-02 15:04"),
		)
	}
}

func verdictCell(v bool, confidence float64) string {
	mark := "-"
	if v {
		mark = "+"
	}
	return fmt.Sprintf("%s%.2f", mark, confidence)
}
