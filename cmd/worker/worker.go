package worker

import (
	"github.com/jmehdipour/customers-api/internal/config"
	"github.com/spf13/cobra"
)

// ConfigLoader returns the loaded config with the logger initialized.
type ConfigLoader func() (config.Config, error)

// NewWorkerCmd returns the parent "worker" command.
func NewWorkerCmd(load ConfigLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background workers",
	}
	cmd.AddCommand(newAuditCmd(load))

	return cmd
}
