package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/spigell/resume-extractor/internal/batch"
	"github.com/spigell/resume-extractor/internal/export"
	"github.com/spigell/resume-extractor/internal/logger"
	"github.com/spigell/resume-extractor/internal/queries"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptExport        = "Export results"
	PromptReportSummary = "Report summary"
	PromptDumpFailures  = "Dump failed queries"
	PromptExit          = "Exit"

	filteredSuffix = ".filtered"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Batch finished. What next?",
	Items: []string{PromptExport, PromptReportSummary, PromptDumpFailures, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract structured résumé data for every query and export it",
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("queries", "q", "", "a .txt, .csv or .xlsx file with one query per row")
	runCmd.Flags().Bool("from-files", false, "treat positional arguments as files whose names become queries")
	runCmd.Flags().String("query-template", queries.DefaultTemplate, "template for queries built from file names")
	runCmd.Flags().BoolP("auto-approve", "y", false, "export right after the batch without asking")
	runCmd.Flags().BoolP("new-session", "n", false, "do not reuse the persisted session")
	runCmd.Flags().StringP("export-dir", "o", "", "directory for exported files")

	viper.BindPFlag("export.dir", runCmd.Flags().Lookup("export-dir"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the resume-extractor", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	list, err := loadQueries(cmd, args)
	if err != nil {
		logger.Fatal("loading queries", zap.Error(err))
	}

	logger.Info("loaded queries", zap.Int("count", len(list)))

	filter, err := export.ParseFilters(config.Export.Filters)
	if err != nil {
		logger.Fatal("parsing export filters", zap.Error(err))
	}

	manager, err := newManager(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the conversation", zap.Error(err))
	}

	extractor := batch.New(manager, batch.Options{
		SharedSession: config.Batch.SharedSession,
		Preamble:      config.Batch.Preamble,
	}, logger)

	newSession, _ := cmd.Flags().GetBool("new-session")
	reuse := config.Batch.ReuseSession && !newSession

	result, err := extractor.RunBatch(ctx, list, reuse)
	if err != nil {
		logger.Fatal("running the batch", zap.Error(err))
	}

	reportSummary(logger, result, config.Export.SummaryFields)

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	if autoApprove {
		if err := exportResult(logger, config.Export, result, filter); err != nil {
			logger.Fatal("exporting", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, config.Export, result, filter); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, config *ExportConfig, result batch.Result, filter export.Filter) error {
	switch action {
	case PromptExport:
		return exportResult(logger, config, result, filter)
	case PromptReportSummary:
		reportSummary(logger, result, config.SummaryFields)
		return nil
	case PromptDumpFailures:
		return dumpFailures(logger, config, result)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func loadQueries(cmd *cobra.Command, args []string) ([]string, error) {
	fromFiles, _ := cmd.Flags().GetBool("from-files")
	if fromFiles {
		template, _ := cmd.Flags().GetString("query-template")
		list := queries.FromFileNames(args, template)
		if len(list) == 0 {
			return nil, errors.New("no file names given to build queries from")
		}
		return list, nil
	}

	path, _ := cmd.Flags().GetString("queries")
	if path != "" {
		return queries.Load(path)
	}

	if len(args) > 0 {
		return args, nil
	}

	return nil, errors.New("nothing to extract: pass --queries, --from-files or queries as arguments")
}

func reportSummary(logger *zap.Logger, result batch.Result, fields []string) {
	summary := result.Summary()

	distinct := make(map[string][]string, len(fields))
	for _, field := range fields {
		distinct[field] = result.DistinctValues(field)
	}

	pretty, _ := json.MarshalIndent(struct {
		batch.Summary
		Distinct map[string][]string `json:"distinct,omitempty"`
	}{summary, distinct}, "", "  ")

	logger.Info(string(pretty),
		zap.Int("total", summary.Total),
		zap.Int("ok", summary.ByStatus[batch.StatusOK]),
	)
}

func exportResult(logger *zap.Logger, config *ExportConfig, result batch.Result, filter export.Filter) error {
	var opts []export.Option
	if config.MetaColumns {
		opts = append(opts, export.WithMetaColumns())
	}

	// The full export is always written; a filter adds separate files next to it.
	if err := writeExports(logger, config, result, nil, "", opts); err != nil {
		return err
	}

	if filter != nil {
		if err := writeExports(logger, config, result, filter, filteredSuffix, opts); err != nil {
			return err
		}
	}

	if len(result.Failures()) > 0 {
		return dumpFailures(logger, config, result)
	}

	return nil
}

func writeExports(logger *zap.Logger, config *ExportConfig, result batch.Result, filter export.Filter, suffix string, opts []export.Option) error {
	if config.Tabular != "" {
		path := exportPath(config.Dir, config.Tabular, suffix)
		if err := export.Tabular(result, path, filter, opts...); err != nil {
			return fmt.Errorf("tabular export: %w", err)
		}
		logger.Info("exported table", zap.String("filename", path), zap.Bool("filtered", filter != nil))
	}

	if config.JSON != "" {
		path := exportPath(config.Dir, config.JSON, suffix)
		if err := export.JSON(result, path, filter); err != nil {
			return fmt.Errorf("json export: %w", err)
		}
		logger.Info("exported json", zap.String("filename", path), zap.Bool("filtered", filter != nil))
	}

	return nil
}

// exportPath inserts suffix before the extension: resume_data.xlsx -> resume_data.filtered.xlsx.
func exportPath(dir, name, suffix string) string {
	ext := filepath.Ext(name)
	return filepath.Join(dir, strings.TrimSuffix(name, ext)+suffix+ext)
}

func dumpFailures(logger *zap.Logger, config *ExportConfig, result batch.Result) error {
	failures := result.Failures()
	if len(failures) == 0 {
		logger.Info("no failed queries to dump")
		return nil
	}

	if config.Failures == "" {
		for _, rec := range failures {
			logger.Warn("failed query",
				zap.Int("index", rec.Index),
				zap.String("query", rec.SourceQuery),
				zap.String("status", string(rec.Status)),
				zap.String("error", rec.Error),
			)
		}
		return nil
	}

	path := filepath.Join(config.Dir, config.Failures)
	if err := export.Failures(result, path); err != nil {
		return fmt.Errorf("dump failed queries: %w", err)
	}

	logger.Info("dumping failed queries to file", zap.String("filename", path), zap.Int("count", len(failures)))
	return nil
}
