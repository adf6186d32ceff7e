package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/document-intelligence-api/internal/client"
	"github.com/BerylCAtieno/document-intelligence-api/internal/models"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", path)
				}
				return fmt.Errorf("read file: %w", err)
			}

			resp, err := ctx.client().Upload(cmd.Context(), path, data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploaded %s (%s) as %s\n", resp.Filename, humanize.Bytes(uint64(resp.FileSize)), resp.ID)
			fmt.Fprintf(out, "Strategy: %s", resp.Strategy)
			if resp.RequiresOCR {
				fmt.Fprint(out, " (OCR)")
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		force       bool
		wait        bool
		interval    time.Duration
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:   "analyze <document-id>",
		Short: "Request an analysis run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.client()
			id := args[0]
			resp, err := c.Analyze(cmd.Context(), id, force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", id, resp.Status)
			if !wait || resp.Status == models.OutcomeSkippedUnchanged {
				return nil
			}

			result, err := client.NewPoller(c.Status, interval, maxAttempts).Poll(cmd.Context(), id)
			if err != nil {
				return err
			}
			switch result.State {
			case client.StateSucceeded:
				fmt.Fprintf(out, "Analysis completed after %s\n", attempts(result.Attempts))
			case client.StateTimedOut:
				fmt.Fprintf(out, "Still running after %s; check again with: docintel status %s\n", attempts(result.Attempts), id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-analyze even if the content is unchanged")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the analysis finishes")
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultInterval, "Polling interval with --wait")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", client.DefaultMaxAttempts, "Maximum status checks with --wait")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show the analysis status of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.client().Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Document", st.DocumentID},
				{"Status", string(st.AnalysisStatus)},
			}
			if st.AnalyzedAt != nil {
				rows = append(rows, []string{"Analyzed", humanize.Time(*st.AnalyzedAt)})
			}
			if st.LastError != nil {
				rows = append(rows, []string{"Last error", *st.LastError})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}

func newEntitiesCommand(ctx *commandContext) *cobra.Command {
	var entityType string

	cmd := &cobra.Command{
		Use:   "entities <document-id>",
		Short: "List the entities found in a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Entities(cmd.Context(), args[0], entityType)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderEntities(resp))
			return nil
		},
	}
	cmd.Flags().StringVar(&entityType, "type", "", "Only show entities of this type (PERSON, ORG, DATE, ...)")
	return cmd
}

func renderEntities(resp *client.EntitiesResponse) string {
	coll := resp.Data
	rows := make([][]string, 0, len(coll.Entities))
	for _, e := range coll.Entities {
		rows = append(rows, []string{e.Type, e.Text, e.Normalized, strconv.Itoa(e.Start)})
	}

	s := fmt.Sprintf("%s entities\n", humanize.Comma(int64(coll.TotalEntities)))
	if len(rows) > 0 {
		s += renderTable([]string{"Type", "Text", "Normalized", "Offset"}, rows, 3) + "\n"
	}
	if resp.Partial {
		s += fmt.Sprintf("Partial analysis; degraded stages: %v\n", resp.DegradedStages)
	}
	return s
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "report <document-id>",
		Short: "Export the analysis report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := ctx.client().Report(cmd.Context(), args[0], format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", output, humanize.Bytes(uint64(len(body))))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "Report format: json or markdown")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}

func attempts(n int) string {
	if n == 1 {
		return "1 attempt"
	}
	return strconv.Itoa(n) + " attempts"
}
