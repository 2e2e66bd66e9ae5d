package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/models"
)

func newScanCmd() *cobra.Command {
	var (
		orgID  string
		kind   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan an organization for duplicate records",
		Long:  `Runs a synchronous duplicate scan over the approved contacts or companies of one organization and prints the ranked clusters.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entityKind := models.EntityKind(kind)
			if !entityKind.Valid() {
				return fmt.Errorf("unknown kind %q: expected contact or company", kind)
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			a := newApp(cfg, logger, appOptions{})
			if err := a.start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = a.stop(context.Background()) }()

			service, err := a.service()
			if err != nil {
				return err
			}

			result, err := service.ScanDuplicates(cmd.Context(), orgID, entityKind)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printScan(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization id to scan")
	cmd.Flags().StringVar(&kind, "kind", string(models.EntityKindContact), "entity kind: contact or company")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}

func printScan(w io.Writer, result *models.ScanResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", cyan(fmt.Sprintf("=== Duplicate %s clusters ===", result.Kind)))
	fmt.Fprintf(w, "%s\n\n", gray(fmt.Sprintf("%d records scanned", result.TotalScanned)))

	if len(result.Clusters) == 0 {
		fmt.Fprintf(w, "  %s\n\n", gray("No duplicates found"))
		return
	}

	for i, cluster := range result.Clusters {
		confidence := yellow
		if cluster.Confidence >= 90 {
			confidence = green
		}

		names := ectolinq.Map(cluster.Entities, func(e models.Entity) string {
			return fmt.Sprintf("%s (%s)", e.Name, e.ID)
		})

		fmt.Fprintf(w, "%3d. %s  %s\n", i+1, confidence(fmt.Sprintf("%3d%%", cluster.Confidence)), strings.Join(names, "  <->  "))
		fmt.Fprintf(w, "     %s\n", gray(cluster.Reason))
	}
	fmt.Fprintln(w)
}

