package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dealdesk/internal/core"
)

func newImportCmd(a *app) *cobra.Command {
	var against string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Check a CSV file and report what importing it would do",
		Long: `Import parses the file the way the server would and reports rows and
fields. With --against, the file is compared to an existing export and the
report lists new, changed and removed rows, cell warnings and duplicate keys.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if against == "" {
				res, err := a.load(ctx, args[0])
				if err != nil {
					return err
				}
				printf(out, "%s: %d rows, %d fields (%s)\n", res.Dataset, res.Rows, len(res.Fields), strings.Join(res.Fields, ", "))
				return nil
			}

			if _, err := a.load(ctx, against); err != nil {
				return fmt.Errorf("load %s: %w", against, err)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			p, err := a.service.PreviewImport(ctx, a.dataset, f)
			if err != nil {
				return err
			}
			return writePreview(out, p)
		},
	}
	cmd.Flags().StringVar(&against, "against", "", "existing CSV to compare with")
	return cmd
}

func newRecordsCmd(a *app) *cobra.Command {
	var (
		q     core.RecordQuery
		sorts []string
		desc  bool
	)
	cmd := &cobra.Command{
		Use:   "records <file>",
		Short: "List records with optional filter, search and sort",
		Example: `  dealdesk records pipeline.csv --field Stage --value LOI
  dealdesk records pipeline.csv --search alpha --sort Deadline --desc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.load(cmd.Context(), args[0]); err != nil {
				return err
			}
			dir := "asc"
			if desc {
				dir = "desc"
			}
			for _, s := range sorts {
				q.Sorts = append(q.Sorts, core.SortSpec{Field: s, Dir: dir})
			}
			page, err := a.service.Query(a.dataset, q)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(page.Records))
			for _, rec := range page.Records {
				rows = append(rows, rec.Strings())
			}
			title := fmt.Sprintf("%d of %d records (page %d/%d)", len(page.Records), page.TotalRows, page.Page, page.TotalPages)
			return writeTable(cmd.OutOrStdout(), title, page.Fields, rows)
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.FilterField, "field", "", "filter field")
	f.StringVar(&q.FilterValue, "value", "", "exact value for --field")
	f.StringVar(&q.Search, "search", "", "case-insensitive text search over all fields")
	f.StringSliceVar(&sorts, "sort", nil, "sort fields (at most two)")
	f.BoolVar(&desc, "desc", false, "sort descending")
	f.IntVar(&q.Page, "page", 1, "page number")
	f.IntVar(&q.PageSize, "page-size", core.DefaultPageSize, "records per page")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		key  string
		sets []string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "edit <file>",
		Short: "Update fields of one record and write the file back",
		Long: `Edit finds the first record whose key field equals --key, applies every
--set Field=Value, and writes the result to --out (default: the input file).
Values are normalized and validated; a rejected edit leaves the file alone.`,
		Example: `  dealdesk edit pipeline.csv --key AlphaTech --set Stage=LOI --set "Deadline=Sep 30, 2025"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := a.load(ctx, args[0]); err != nil {
				return err
			}

			resp := a.service.Edit(ctx, a.dataset, core.EditRequest{Key: key, FieldUpdates: updates})
			if !resp.OK {
				return fmt.Errorf("%s: %s", resp.ErrorKind, resp.Message)
			}
			if out == "" {
				out = args[0]
			}
			if err := a.save(ctx, out); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "updated %q in %s\n", key, out)
			return writeRecord(cmd.OutOrStdout(), *resp.UpdatedRecord)
		},
	}
	f := cmd.Flags()
	f.StringVar(&key, "key", "", "key of the record to edit")
	f.StringArrayVar(&sets, "set", nil, "Field=Value update (repeatable)")
	f.StringVarP(&out, "out", "o", "", "output file (default: overwrite input)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var (
		sets []string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Append a record and write the file back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := os.Stat(args[0]); err == nil {
				if _, err := a.load(ctx, args[0]); err != nil {
					return err
				}
			}
			rec, err := a.service.AddRecord(ctx, a.dataset, values)
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0]
			}
			if err := a.save(ctx, out); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "added record to %s\n", out)
			return writeRecord(cmd.OutOrStdout(), rec)
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&sets, "set", nil, "Field=Value (repeatable)")
	f.StringVarP(&out, "out", "o", "", "output file (default: overwrite input)")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func newBoardCmd(a *app) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "board <file>",
		Short: "Show records as columns grouped by stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.load(cmd.Context(), args[0]); err != nil {
				return err
			}
			def, _ := core.Get(a.dataset)
			if field == "" {
				field = def.Info.StageField
			}
			if field == "" {
				return fmt.Errorf("dataset %s has no stage field; pass --field", a.dataset)
			}
			proj, err := a.service.Project(a.dataset, field)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", renderBoard(proj, def.Info.KeyField))
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "group by this field (default: the dataset's stage field)")
	return cmd
}

func newCountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "counts <file> <field>",
		Short: "Count records per value of a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.load(cmd.Context(), args[0]); err != nil {
				return err
			}
			counts, err := a.service.Counts(a.dataset, args[1])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(counts))
			for _, c := range counts {
				label := c.Value.Text()
				if label == "" {
					label = "(empty)"
				}
				rows = append(rows, []string{label, strconv.Itoa(c.Count)})
			}
			return writeTable(cmd.OutOrStdout(), args[1], []string{"Value", "Count"}, rows)
		},
	}
}

func newSampleCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the dataset's example CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return a.service.Sample(a.dataset, cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := a.service.Sample(a.dataset, f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}
