package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heldhq/held/internal/app"
	"github.com/heldhq/held/internal/application/doctor"
	"github.com/heldhq/held/internal/domain"
)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(lazy *app.Lazy) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, database and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctorDiagnostics(cmd, cmd.OutOrStdout(), lazy)
		},
	}
}

// runDoctorDiagnostics runs environment diagnostics. A container that fails
// to build still gets a report from the config checks.
func runDoctorDiagnostics(cmd *cobra.Command, out io.Writer, lazy *app.Lazy) error {
	ctx := cmd.Context()

	service := &doctor.Service{ConfigProvider: loaderFor(lazy)}
	container, buildErr := lazy.Get(ctx)
	if buildErr == nil {
		service = container.DoctorService
	} else {
		fmt.Fprintf(out, "[%s] Startup - %v\n", strings.ToUpper(string(domain.HealthError)), buildErr)
	}

	report, err := service.Run(ctx)

	// Display report even if there were errors
	displayDoctorReport(out, report)

	if err != nil {
		return fmt.Errorf("diagnostics completed with errors: %w", err)
	}
	if buildErr != nil {
		return fmt.Errorf("diagnostics completed with errors: %w", buildErr)
	}
	return nil
}

// displayDoctorReport displays the health check report
func displayDoctorReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		fmt.Fprintf(out, "[%s] %s - %s\n",
			strings.ToUpper(string(check.Status)),
			check.Name,
			check.Details)
	}
}
