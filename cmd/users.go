package cmd

import (
	"github.com/spf13/cobra"

	"tspm/internal/config"
	"tspm/pkg/graph"
	"tspm/pkg/pipeline"
	"tspm/pkg/riskposture"
)

var (
	enabledOnly bool
	upnDomain   string
)

func userFetcher(domain riskposture.Domain) func(cfg *config.Config, client graph.Client) pipeline.Fetcher {
	return func(cfg *config.Config, client graph.Client) pipeline.Fetcher {
		return &pipeline.UserFetcher{
			Client:        client,
			For:           domain,
			Criteria:      graph.UserCriteria{EnabledOnly: enabledOnly, Domain: upnDomain},
			Concurrency:   cfg.Concurrency,
			ProgressEvery: cfg.ProgressEvery,
			Progress:      progressHandler(),
		}
	}
}

var mfaCmd = &cobra.Command{
	Use:   "mfa",
	Short: "Run the MFA coverage check",
	Long:  `Lists directory users and flags enabled, licensed accounts without MFA registration.`,
	Run: func(cmd *cobra.Command, args []string) {
		runAnalysis(userFetcher(riskposture.DomainMFA))
	},
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Run the password expiry check",
	Long:  `Lists directory users and buckets them by password expiry: Never, Expired, Urgent, Warning, Normal.`,
	Run: func(cmd *cobra.Command, args []string) {
		runAnalysis(userFetcher(riskposture.DomainPassword))
	},
}

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Run the license assignment check",
	Long:  `Lists directory users and flags enabled accounts without an assigned license, with an estimated monthly cost total.`,
	Run: func(cmd *cobra.Command, args []string) {
		runAnalysis(userFetcher(riskposture.DomainLicense))
	},
}

func init() {
	for _, c := range []*cobra.Command{mfaCmd, passwordCmd, licenseCmd} {
		c.Flags().BoolVar(&enabledOnly, "enabled-only", false, "Only analyze enabled accounts")
		c.Flags().StringVar(&upnDomain, "domain", "", "Only analyze users with this UPN domain")
		rootCmd.AddCommand(c)
	}
}
