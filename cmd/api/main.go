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

	"github.com/Eridaras/SistemaMedico/internal/application/billing"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/postgres"
	infrasri "github.com/Eridaras/SistemaMedico/internal/infrastructure/sri"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/sri/signer"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/storage"
	httpRouter "github.com/Eridaras/SistemaMedico/internal/interfaces/http"
	"github.com/Eridaras/SistemaMedico/pkg/config"
	"github.com/Eridaras/SistemaMedico/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:            cfg.App.Env,
		Level:          cfg.Log.Level,
		Service:        cfg.App.Name,
		SRIEnvironment: cfg.SRI.Environment,
	})
	log.Info().Str("env", cfg.App.Env).Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	profileRepo := postgres.NewIssuerProfileRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	logRepo := postgres.NewAuthorizationLogRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Credencial: la de la configuración global; si no hay, la del emisor activo.
	signerOpts := signer.Options{
		Mode:        signer.Mode(cfg.SRI.SigningMode),
		Environment: cfg.SRI.Environment,
		CertPath:    cfg.SRI.CertPath,
		KeyPath:     cfg.SRI.CertKeyPath,
		Password:    cfg.SRI.CertPassword,
	}
	if signerOpts.CertPath == "" {
		profile, err := profileRepo.GetActive(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("leer configuración del emisor")
		}
		if profile != nil && profile.CertificatePath != "" {
			signerOpts.CertPath = profile.CertificatePath
			signerOpts.Password = profile.CertificatePassword
		}
	}
	docSigner, err := signer.NewDocumentSigner(signerOpts, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("firmador de comprobantes")
	}
	if signerOpts.CertPath == "" {
		log.Warn().Str("modo", string(docSigner.Mode())).Msg("sin certificado de firma configurado")
	}

	soapClient := infrasri.NewSOAPClient(infrasri.ClientConfig{
		Environment:      cfg.SRI.Environment,
		ReceptionURL:     cfg.SRI.ReceptionURL,
		AuthorizationURL: cfg.SRI.AuthorizationURL,
		Timeout:          cfg.SRI.Timeout,
	}, log.Zerolog())
	archive := storage.NewOSArchive(cfg.Storage.BasePath)

	// SRIOrchestrator: secuencial → clave de acceso → XML → firma → archivo → recepción → autorización
	orchestrator := billing.NewSRIOrchestrator(
		txRunner, invoiceRepo,
		infrasri.NewXMLBuilderService(), docSigner, soapClient, archive,
		billing.OrchestratorConfig{
			PollAttempts: cfg.SRI.PollAttempts,
			PollInterval: cfg.SRI.PollInterval,
		},
		log.Zerolog(),
	)

	invoiceUC := billing.NewSRIInvoiceUseCase(orchestrator, invoiceRepo, logRepo, archive)
	configUC := billing.NewSRIConfigUseCase(profileRepo)
	serviceUC := billing.NewSRIServiceUseCase(docSigner, soapClient, archive)

	app := fiber.New(fiber.Config{
		AppName:     cfg.App.Name,
		ReadTimeout: time.Second * 10,
		// la autorización puede esperar recepción + PollAttempts consultas
		WriteTimeout: cfg.SRI.Timeout*time.Duration(cfg.SRI.PollAttempts+1) +
			cfg.SRI.PollInterval*time.Duration(cfg.SRI.PollAttempts) + 10*time.Second,
		IdleTimeout: time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Sistema Médico - Facturación Electrónica SRI",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		InvoiceUC: invoiceUC,
		ConfigUC:  configUC,
		ServiceUC: serviceUC,
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
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
