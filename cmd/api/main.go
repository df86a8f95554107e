package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/erp-documentos/docs"
	"github.com/jhoicas/erp-documentos/internal/bootstrap"
	"github.com/jhoicas/erp-documentos/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/erp-documentos/internal/interfaces/http"
	"github.com/jhoicas/erp-documentos/pkg/config"
	"github.com/jhoicas/erp-documentos/pkg/logger"
)

// @title        ERP Documentos API
// @version      1.0
// @description  Ciclo de vida de documentos comerciales: numeración, stock, recibos, agrupación e impuestos.
// @BasePath     /
// @securityDefinitions.apikey Bearer
// @in           header
// @name         Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool, log.WithComponent("migrate"))
	if err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}
	if len(applied) > 0 {
		log.Info().Strs("scripts", applied).Msg("migraciones aplicadas")
	}

	svc, err := bootstrap.NewServices(cfg, postgres.NewTxRunner(pool), log)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración de servicios")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if !cfg.App.IsProduction() {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "ERP Documentos API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Documents:    svc.Documents,
		Stock:        svc.Stock,
		Grouping:     svc.Grouping,
		Receipts:     svc.Receipts,
		Sequencer:    svc.Sequencer,
		PaymentTerms: svc.PaymentTerms,
		JWTSecret:    cfg.JWT.Secret,
		ServiceName:  cfg.App.Name,
		Log:          log.WithComponent("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
