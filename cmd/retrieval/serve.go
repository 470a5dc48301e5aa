package main

import (
	"context"

	"github.com/spf13/cobra"

	"retrievalagent/internal/container"
	"retrievalagent/server"
)

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				a.config.Server.Port = port
			}

			c, err := container.NewContainer(a.config, a.logger)
			if err != nil {
				return err
			}
			defer c.Close()

			srv, err := server.NewServer(a.config.Server, a.config.Auth, c.Controller, c.Router, a.logger)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			a.logger.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "override server port")
	return cmd
}
