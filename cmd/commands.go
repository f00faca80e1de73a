package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/davidbz/cloudprice/internal/domain"
	"github.com/davidbz/cloudprice/internal/observability"
)

const cleanupTimeout = 5 * time.Second

var errCacheNotCleared = errors.New("cache could not be cleared")

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "cloudprice",
		Short: "Compare compute prices across AWS, Azure and GCP",
		Long: `cloudprice aggregates hourly compute pricing from AWS, Azure and GCP.

Examples:
  cloudprice                                              # Serve the HTTP API
  cloudprice prices --instance-type t2.micro --region us-east-1
  cloudprice prices --instance-type t2.micro --region us-east-1 --compare
  cloudprice regions
  cloudprice cache clear`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		newPricesCommand(),
		&cobra.Command{
			Use:   "regions",
			Short: "List regions offered by any provider",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCatalog(cmd, (*domain.Aggregator).GetRegions)
			},
		},
		&cobra.Command{
			Use:   "instance-types",
			Short: "List instance types offered by any provider",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCatalog(cmd, (*domain.Aggregator).GetInstanceTypes)
			},
		},
		newCacheCommand(),
	)

	return root
}

func newPricesCommand() *cobra.Command {
	var (
		instanceType string
		region       string
		compare      bool
	)

	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Fetch prices for one instance type in one region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query, err := domain.NewPriceQuery(instanceType, region)
			if err != nil {
				return err
			}

			return withApplication(cmd.Context(), func(ctx context.Context, app application) error {
				result, err := app.Aggregator.GetComputePrices(ctx, query)
				if err != nil {
					return err
				}
				reportFailures(cmd, result.FailedProviders())

				if compare {
					return printJSON(cmd, domain.BuildComparison(query, result.Records))
				}
				return printJSON(cmd, result.Records)
			})
		},
	}

	cmd.Flags().StringVar(&instanceType, "instance-type", "", "Instance type, e.g. t2.micro")
	cmd.Flags().StringVar(&region, "region", "", "Region, e.g. us-east-1")
	cmd.Flags().BoolVar(&compare, "compare", false, "Print savings and the cheapest provider")
	_ = cmd.MarkFlagRequired("instance-type")
	_ = cmd.MarkFlagRequired("region")

	return cmd
}

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached prices and catalogs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), func(ctx context.Context, app application) error {
				if !app.Aggregator.ClearCache(ctx) {
					return errCacheNotCleared
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			})
		},
	})

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApplication(ctx, func(ctx context.Context, app application) error {
		return app.Server.Run(ctx)
	})
}

func runCatalog(
	cmd *cobra.Command,
	get func(*domain.Aggregator, context.Context) (*domain.CatalogAggregation, error),
) error {
	return withApplication(cmd.Context(), func(ctx context.Context, app application) error {
		result, err := get(app.Aggregator, ctx)
		if err != nil {
			return err
		}
		reportFailures(cmd, result.FailedProviders())
		return printJSON(cmd, result.Entries)
	})
}

// withApplication builds the container, runs fn and releases resources.
func withApplication(ctx context.Context, fn func(ctx context.Context, app application) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	return buildContainer().Invoke(func(app application) error {
		defer func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer cancel()
			app.close(cleanupCtx)
		}()

		if err := fn(ctx, app); err != nil {
			observability.FromContext(ctx).Error("command failed", observability.Error(err))
			return err
		}
		return nil
	})
}

func reportFailures(cmd *cobra.Command, failed []string) {
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "providers failed: %s\n", strings.Join(failed, ","))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
