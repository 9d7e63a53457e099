package scan

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tilt-dashboard/internal/assessment"
	"tilt-dashboard/internal/config"
	"tilt-dashboard/internal/models"
	"tilt-dashboard/internal/osint"
)

func New(log logrus.FieldLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "scan VENDOR",
		Short:                 "Collect OSINT evidence for a vendor",
		Long:                  "Check the ransomware leak list, the TLS certificate and the DMARC policy of a vendor and print the evidence bundle as JSON.",
		Example:               Example(),
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return action(cmd, args, log)
		},
	}

	flags := cmd.Flags()
	flags.String("domain", "", "primary domain (default: vendor name + .com)")
	flags.StringSlice("dmarc-subdomain", nil, "mail subdomain to check instead of the primary domain (repeatable)")
	flags.Bool("force", false, "refresh the leak list and skip cached evidence")

	return cmd
}

func Example() string {
	return "tiltctl scan --domain acme.com --dmarc-subdomain mail.acme.com \"Acme Corp\""
}

func action(cmd *cobra.Command, args []string, log logrus.FieldLogger) error {
	flags := cmd.Flags()
	domain, err := flags.GetString("domain")
	if err != nil {
		return err
	}
	subdomains, err := flags.GetStringSlice("dmarc-subdomain")
	if err != nil {
		return err
	}
	force, err := flags.GetBool("force")
	if err != nil {
		return err
	}

	target, err := Target(args[0], domain, subdomains)
	if err != nil {
		return err
	}

	agg, err := osint.New(config.EvidenceFromEnv(log).OSINT(), log)
	if err != nil {
		return err
	}
	bundle, err := agg.Scan(cmd.Context(), target, osint.ScanOptions{Force: force})
	if err != nil {
		return fmt.Errorf("scan %q: %w", target.VendorName, err)
	}
	return Print(cmd, bundle)
}

// Target builds the scan target, guessing the domain from the name when none
// is given.
func Target(name, domain string, subdomains []string) (osint.Target, error) {
	if name == "" {
		return osint.Target{}, fmt.Errorf("vendor name must not be empty")
	}
	d := osint.NormalizeDomain(domain)
	if d == "" {
		d = guessDomain(name)
	}
	return osint.Target{
		VendorName:      name,
		PrimaryDomain:   d,
		DMARCSubdomains: osint.NormalizeDomains(subdomains),
	}, nil
}

func guessDomain(name string) string {
	return assessment.PrimaryDomain(&models.VendorAssessment{Name: name})
}

func Print(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
