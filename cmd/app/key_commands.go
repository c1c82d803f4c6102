package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/healthsync/tokenvault/cmd/app/commands"
	"github.com/healthsync/tokenvault/internal/app"
	"github.com/healthsync/tokenvault/internal/config"
	"github.com/healthsync/tokenvault/internal/metrics"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "generate-key",
			Usage: "Generate fresh encryption key material",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "keeper-uri",
					Value: "",
					Usage: "Optional gocloud.dev keeper URI to wrap the key (e.g., base64key://, hashivault://keyname)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				keeperURI := cmd.String("keeper-uri")
				if keeperURI == "" {
					keeperURI = cfg.KeyKeeperURI
				}

				return commands.RunGenerateKey(
					ctx,
					container.Codec(),
					container.Logger(),
					commands.DefaultIO().Writer,
					keeperURI,
				)
			},
		},
		{
			Name:  "rotate-key",
			Usage: "Rotate the primary encryption key and migrate all encrypted records",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   0,
					Usage:   "Number of records to migrate per batch (0 uses ROTATION_BATCH_SIZE)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				if batchSize := int(cmd.Int("batch-size")); batchSize > 0 {
					cfg.RotationBatchSize = batchSize
				}

				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				rotationUseCase, err := container.RotationUseCase()
				if err != nil {
					return err
				}

				var metricsServer *metrics.Server
				if cfg.MetricsEnabled {
					provider, err := container.MetricsProvider()
					if err != nil {
						return err
					}
					metricsServer = metrics.NewServer(
						fmt.Sprintf(":%d", cfg.MetricsPort),
						provider,
					)
				}

				return commands.RunRotateKey(
					ctx,
					rotationUseCase,
					container.Codec(),
					metricsServer,
					container.Logger(),
					commands.DefaultIO().Writer,
					cfg.KeyKeeperURI,
				)
			},
		},
		{
			Name:  "verify-rotation",
			Usage: "Verify that the key registry holds exactly one primary key",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer commands.CloseContainer(container, container.Logger())

				rotationUseCase, err := container.RotationUseCase()
				if err != nil {
					return err
				}

				return commands.RunVerifyRotation(
					ctx,
					rotationUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
				)
			},
		},
	}
}
