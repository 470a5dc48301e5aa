package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"retrievalagent/export"
	"retrievalagent/internal/container"
	"retrievalagent/requirements"
	"retrievalagent/retrieval"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		auditPath     string
		accommodation string
	)

	cmd := &cobra.Command{
		Use:   "run <input.json> [output.json]",
		Short: "Run one retrieval for an input document",
		Long: `Run reads the trip requirements, searches until the targets are met or
the iteration budget is spent, and writes the output document to the
given file or to stdout. Budget exhaustion is not an error.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := requirements.Load(args[0])
			if err != nil {
				return err
			}
			if accommodation != "" {
				anchor, err := requirements.ParseAnchor(accommodation)
				if err != nil {
					return err
				}
				req = req.WithAnchor(anchor)
				a.logger.Info("accommodation overridden", "latitude", anchor.Latitude, "longitude", anchor.Longitude)
			}

			c, err := container.NewContainer(a.config, a.logger)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.Controller.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			doc := retrieval.Assemble(result.Candidates)
			if len(args) == 2 {
				if err := doc.WriteFile(args[1]); err != nil {
					return err
				}
				a.logger.Info("output document written", "path", args[1], "candidates", len(result.Candidates))
			} else {
				data, err := doc.Marshal()
				if err != nil {
					return err
				}
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}

			if auditPath != "" {
				if err := export.NewExporter(result).Export(auditPath); err != nil {
					a.logger.Warn("failed to write audit", "path", auditPath, "error", err)
				} else {
					a.logger.Info("audit written", "path", auditPath)
				}
			}

			if result.Cancelled {
				a.logger.Warn("run was cancelled, output holds the best candidates found so far")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&auditPath, "audit", "", "write the iteration audit (.xlsx or .csv)")
	cmd.Flags().StringVar(&accommodation, "accommodation", "", "override the accommodation point as lat,lon")
	return cmd
}
