package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ashureev/wordchat/internal/health"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	var (
		grpcAddr string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the server heartbeat and, optionally, its gRPC health service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			out := cmd.OutOrStdout()

			if err := opts.client().Health(ctx); err != nil {
				return fmt.Errorf("http heartbeat: %w", err)
			}
			fprintf(out, "http: ok\n")

			if grpcAddr == "" {
				return nil
			}
			status, err := health.Probe(ctx, grpcAddr)
			if err != nil {
				return err
			}
			fprintf(out, "grpc %s: %s\n", health.ServiceName, status)
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("service %s is %s", health.ServiceName, status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "address of the gRPC health server (skipped when empty)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "overall probe timeout")
	return cmd
}
