package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tspm/internal/config"
	"tspm/pkg/graph"
	"tspm/pkg/pipeline"
	"tspm/pkg/reports"
	"tspm/pkg/riskposture"
)

var (
	cfgFile   string
	outDir    string
	csvOut    bool
	htmlOut   bool
	quiet     bool
	tableView bool
)

var rootCmd = &cobra.Command{
	Use:   "tspm",
	Short: "Tenant security posture manager",
	Long:  `Analyzes a cloud directory tenant for MFA, password, license, storage and sharing posture and renders compliance reports.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "", "Directory for generated reports (overrides config outputPath)")
	rootCmd.PersistentFlags().BoolVar(&csvOut, "csv", false, "Write the CSV report")
	rootCmd.PersistentFlags().BoolVar(&htmlOut, "html", false, "Write the HTML report")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&tableView, "table", false, "Print the full record table")
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return config.Load("config.yaml")
	}
	return config.Default(), nil
}

func newServiceClient(cfg *config.Config) (graph.Client, error) {
	opts := graph.Options{
		BaseURL:           cfg.Service.BaseURL,
		TenantID:          cfg.Service.Tenant,
		RequestsPerSecond: cfg.Service.RequestsPerSecond,
		HTTPClient:        &http.Client{Timeout: 30 * time.Second},
	}
	if cfg.Service.TokenURL != "" {
		opts.TokenSource = graph.ClientCredentials(
			cfg.Service.TokenURL,
			cfg.Service.ClientID,
			cfg.Service.ClientSecret,
			cfg.Service.Scopes,
		)
	}
	return graph.NewHTTPClient(opts)
}

func rulesFrom(cfg *config.Config) riskposture.Rules {
	rules := riskposture.DefaultRules()
	rules.WarningDays = cfg.WarningDays
	rules.StorageWarningPercent = cfg.Thresholds.StorageWarningPercent
	rules.StorageCriticalPercent = cfg.Thresholds.StorageCriticalPercent
	return rules
}

func requestedFormats() []pipeline.Format {
	var formats []pipeline.Format
	if csvOut {
		formats = append(formats, pipeline.FormatCSV)
	}
	if htmlOut {
		formats = append(formats, pipeline.FormatHTML)
	}
	return formats
}

func progressHandler() pipeline.ProgressHandler {
	if quiet {
		return nil
	}
	return pipeline.ConsoleProgressHandler{}
}

// runAnalysis wires config, client, fetcher and coordinator for one
// domain, then prints the summary and writes any requested formats.
func runAnalysis(fetch func(cfg *config.Config, client graph.Client) pipeline.Fetcher) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	client, err := newServiceClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating service client: %v\n", err)
		os.Exit(1)
	}

	analyzer := &pipeline.Analyzer{
		Fetcher:  fetch(cfg, client),
		Rules:    rulesFrom(cfg),
		Progress: progressHandler(),
		Clock:    pipeline.SystemClock{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Service.TimeoutSeconds)*time.Second)
	defer cancel()

	dir := cfg.OutputPath
	if outDir != "" {
		dir = outDir
	}

	res, err := analyzer.Run(ctx, requestedFormats(), dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running analysis: %v\n", err)
		os.Exit(1)
	}

	reports.PrintSummary(res)
	if tableView {
		reports.PrintRecordTable(res)
	}
	if !res.Success {
		os.Exit(1)
	}
}
