package cmd

import (
	"github.com/spf13/cobra"

	"tspm/internal/config"
	"tspm/pkg/entity"
	"tspm/pkg/graph"
	"tspm/pkg/pipeline"
	"tspm/pkg/riskposture"
)

var storageKind string

func storageFetcher(domain riskposture.Domain) func(cfg *config.Config, client graph.Client) pipeline.Fetcher {
	return func(cfg *config.Config, client graph.Client) pipeline.Fetcher {
		return &pipeline.StorageFetcher{
			Client:        client,
			For:           domain,
			Criteria:      graph.StorageCriteria{Kind: entity.StorageKind(storageKind)},
			Concurrency:   cfg.Concurrency,
			ProgressEvery: cfg.ProgressEvery,
			Progress:      progressHandler(),
		}
	}
}

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Run the storage usage check",
	Long:  `Lists collaboration sites and drives and buckets them by quota usage against the warning and critical thresholds.`,
	Run: func(cmd *cobra.Command, args []string) {
		runAnalysis(storageFetcher(riskposture.DomainStorage))
	},
}

var sharingCmd = &cobra.Command{
	Use:   "sharing",
	Short: "Run the external sharing check",
	Long:  `Lists collaboration sites and drives and flags anonymous links and external recipients.`,
	Run: func(cmd *cobra.Command, args []string) {
		runAnalysis(storageFetcher(riskposture.DomainSharing))
	},
}

func init() {
	for _, c := range []*cobra.Command{storageCmd, sharingCmd} {
		c.Flags().StringVar(&storageKind, "kind", "", "Only analyze this surface kind (site, drive, team)")
		rootCmd.AddCommand(c)
	}
}
