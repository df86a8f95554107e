package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/jhoicas/erp-documentos/internal/bootstrap"
	"github.com/jhoicas/erp-documentos/internal/cli"
	"github.com/jhoicas/erp-documentos/internal/infrastructure/postgres"
	"github.com/jhoicas/erp-documentos/pkg/config"
	"github.com/jhoicas/erp-documentos/pkg/logger"
)

func main() {
	// .env opcional; las variables de entorno del sistema siguen valiendo.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:    cfg.App.Env,
		Level:  cfg.Log.Level,
		Output: os.Stderr,
	})
	if envErr != nil {
		log.Debug().Err(envErr).Msg("sin fichero .env")
	}

	openPool := func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.NewPool(ctx, cfg.DB)
	}

	deps := cli.Deps{
		Config: cfg,
		Log:    log,
		Out:    os.Stdout,
		Open: func(ctx context.Context) (*bootstrap.Services, func(), error) {
			pool, err := openPool(ctx)
			if err != nil {
				return nil, nil, err
			}
			svc, err := bootstrap.NewServices(cfg, postgres.NewTxRunner(pool), log)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			return svc, pool.Close, nil
		},
		Migrate: func(ctx context.Context) ([]string, error) {
			pool, err := openPool(ctx)
			if err != nil {
				return nil, err
			}
			defer pool.Close()
			return postgres.Migrate(ctx, pool, log.WithComponent("migrate"))
		},
	}

	if err := cli.Execute(context.Background(), deps, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
