package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"surveylens/app"
	"surveylens/domain/survey"
	"surveylens/internal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type globalOptions struct {
	timezone   string
	vocabulary string
	sheet      string
	headerRow  int
	skipEmpty  bool
	maxRows    int
	jsonOutput bool
}

func main() {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:          "surveylens",
		Short:        "Parse and analyze employee satisfaction survey spreadsheets",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.timezone, "timezone", "Asia/Tokyo", "Location for dates without a zone")
	flags.StringVar(&opts.vocabulary, "vocabulary", "", "YAML file replacing the built-in vocabulary")
	flags.StringVar(&opts.sheet, "sheet", "", "Sheet name (defaults to the first sheet)")
	flags.IntVar(&opts.headerRow, "header-row", 0, "Zero-based index of the header row")
	flags.BoolVar(&opts.skipEmpty, "skip-empty", false, "Drop rows without any value")
	flags.IntVar(&opts.maxRows, "max-rows", 0, "Stop after this many data rows (0 = all)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print JSON instead of a text report")

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newDetectCmd(opts),
		newQuestionCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *globalOptions) service() (*app.AnalysisService, error) {
	vocab := survey.DefaultVocabulary()
	if o.vocabulary != "" {
		loaded, err := survey.LoadVocabulary(o.vocabulary)
		if err != nil {
			return nil, err
		}
		vocab = loaded
	}
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", o.timezone, err)
	}
	// Engine logs go to stderr only at WARN and above so reports stay clean.
	logger := internal.NewLogger(internal.LogLevelWarn)
	return app.NewAnalysisService(vocab, loc, app.WithLogger(logger)), nil
}

func (o *globalOptions) parseOptions(path string) survey.ParseOptions {
	return survey.ParseOptions{
		FileName:      filepath.Base(path),
		SheetName:     o.sheet,
		HeaderRow:     o.headerRow,
		SkipEmptyRows: o.skipEmpty,
		MaxRows:       o.maxRows,
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newAnalyzeCmd(opts *globalOptions) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Run the full parse, validate and analyze pipeline",
		Long: `Analyze one or more .xlsx or .csv survey exports. Files are processed
concurrently; each report is printed in argument order.

Example: surveylens analyze 2023.xlsx 2024.xlsx --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}

			if concurrency < 1 {
				concurrency = 1
			}
			reports := make([]*app.Report, len(args))
			g := new(errgroup.Group)
			g.SetLimit(concurrency)
			for i, path := range args {
				g.Go(func() error {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					report, err := svc.AnalyzeFile(data, opts.parseOptions(path))
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					reports[i] = report
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				if len(reports) == 1 {
					return printJSON(out, reports[0])
				}
				return printJSON(out, reports)
			}
			for i, report := range reports {
				if i > 0 {
					fmt.Fprintln(out)
				}
				printReport(out, args[i], report)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Files analyzed at the same time")
	return cmd
}

func printReport(w io.Writer, path string, report *app.Report) {
	meta := report.ParseResult.Metadata
	summary := report.Summary

	fmt.Fprintf(w, "📄 %s\n", path)
	fmt.Fprintf(w, "Sheet: %s (%d rows, %d columns)\n", meta.SheetName, meta.TotalRows, meta.TotalColumns)
	fmt.Fprintf(w, "Format: %s (confidence %.2f)\n", meta.Format.Schema, meta.Format.Confidence)
	fmt.Fprintf(w, "Responses: %d total, %d valid (%.0f%%), data quality %s\n",
		summary.Overview.TotalResponses, summary.Overview.ValidResponses,
		summary.Overview.CompletionRate, summary.Overview.DataQuality)

	if h := summary.Highlights.HighestSatisfaction; h != nil {
		fmt.Fprintf(w, "Highest: %s (%.1f)\n", h.Question, h.Score)
	}
	if l := summary.Highlights.LowestSatisfaction; l != nil {
		fmt.Fprintf(w, "Lowest:  %s (%.1f)\n", l.Question, l.Score)
	}
	if len(summary.Highlights.TopConcerns) > 0 {
		fmt.Fprintf(w, "Top concerns: %s\n", strings.Join(summary.Highlights.TopConcerns, ", "))
	}
	if len(summary.Highlights.TopSuggestions) > 0 {
		fmt.Fprintf(w, "Top suggestions: %s\n", strings.Join(summary.Highlights.TopSuggestions, ", "))
	}

	fmt.Fprintf(w, "\n📊 Satisfaction\n")
	for _, a := range report.AnalysisData {
		d, ok := a.Data.(survey.DistributionData)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-28s avg %.1f  satisfied %3.0f%%  n=%d\n",
			a.QuestionID, d.AverageScore, d.SatisfactionRate, d.TotalResponses)
	}

	companies := make([]string, 0, len(report.BasicStats.CompanyCounts))
	for name := range report.BasicStats.CompanyCounts {
		companies = append(companies, name)
	}
	sort.Strings(companies)
	if len(companies) > 0 {
		fmt.Fprintf(w, "\n🏢 Companies\n")
		for _, name := range companies {
			fmt.Fprintf(w, "  %s: %d\n", name, report.BasicStats.CompanyCounts[name])
		}
	}

	if errs := report.ParseResult.Errors; len(errs) > 0 {
		fmt.Fprintf(w, "\n❌ Errors (%d)\n", len(errs))
		for i, e := range errs {
			if i == 5 {
				fmt.Fprintf(w, "  ... and %d more\n", len(errs)-5)
				break
			}
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	for _, warning := range report.ParseResult.Warnings {
		fmt.Fprintf(w, "⚠️  %s\n", warning)
	}
	for _, s := range report.Validation.Suggestions {
		fmt.Fprintf(w, "💡 %s\n", s)
	}
}

func newDetectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect [file]",
		Short: "Report which questionnaire layout a file's header row matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			format, err := svc.DetectFileFormat(data, opts.parseOptions(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, format)
			}
			fmt.Fprintf(out, "Schema: %s\n", format.Schema)
			fmt.Fprintf(out, "Confidence: %.2f\n", format.Confidence)
			fmt.Fprintf(out, "Matched (%d): %s\n", len(format.MatchedHeaders), strings.Join(format.MatchedHeaders, ", "))
			fmt.Fprintf(out, "Missing (%d): %s\n", len(format.MissingHeaders), strings.Join(format.MissingHeaders, ", "))
			fmt.Fprintf(out, "Extra (%d): %s\n", len(format.ExtraHeaders), strings.Join(format.ExtraHeaders, ", "))
			return nil
		},
	}
}

func newQuestionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "question [file] [question-id] [analysis-type]",
		Short: "Run one analysis for one question and print it as JSON",
		Long: `Analysis types: distribution, multipleChoice, textAnalysis, jobType, demographic.

Example: surveylens question 2024.xlsx work_environment jobType`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			result := svc.ProcessFile(data, opts.parseOptions(args[0]))
			if !result.Success {
				return fmt.Errorf("%s: %s", result.Error, strings.Join(result.ParseResult.Errors, "; "))
			}
			analysis, err := result.QuestionAnalysis(args[1], survey.AnalysisType(args[2]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), analysis)
		},
	}
}
