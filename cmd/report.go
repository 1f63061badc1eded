package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"tspm/internal/config"
	"tspm/pkg/graph"
	"tspm/pkg/pipeline"
	"tspm/pkg/reports"
	"tspm/pkg/riskposture"
)

var (
	serveDomain string
	servePort   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Generate and serve an HTML report",
	Long:  `Runs one analysis for the chosen domain and serves the generated HTML report over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		domain := riskposture.Domain(serveDomain)

		var build func(cfg *config.Config, client graph.Client) pipeline.Fetcher
		switch domain {
		case riskposture.DomainMFA, riskposture.DomainPassword, riskposture.DomainLicense:
			build = userFetcher(domain)
		case riskposture.DomainStorage, riskposture.DomainSharing:
			build = storageFetcher(domain)
		default:
			fmt.Fprintf(os.Stderr, "Unknown domain %q\n", serveDomain)
			os.Exit(1)
		}

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
			Fetcher:  build(cfg, client),
			Rules:    rulesFrom(cfg),
			Progress: progressHandler(),
			Clock:    pipeline.SystemClock{},
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Service.TimeoutSeconds)*time.Second)
		defer cancel()

		res, err := analyzer.Run(ctx, nil, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running analysis: %v\n", err)
			os.Exit(1)
		}

		out := filepath.Join(cfg.OutputPath, pipeline.OutputFile(domain, pipeline.FormatHTML))
		if err := reports.ServeHTML(res, out, servePort); err != nil {
			fmt.Fprintf(os.Stderr, "Error serving report: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveDomain, "domain", string(riskposture.DomainStorage), "Domain to analyze (mfa, password, license, storage, sharing)")
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "8080", "Port to serve the report on")
	rootCmd.AddCommand(serveCmd)
}
