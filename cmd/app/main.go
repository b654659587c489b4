package main

import (
	"context"
	"time"

	"Exam-Template-Wizard-Backend/internal/api"
	"Exam-Template-Wizard-Backend/internal/auth"
	"Exam-Template-Wizard-Backend/internal/client"
	"Exam-Template-Wizard-Backend/internal/config"
	"Exam-Template-Wizard-Backend/internal/logger"
	"Exam-Template-Wizard-Backend/internal/model"
	"Exam-Template-Wizard-Backend/internal/repository"
	"Exam-Template-Wizard-Backend/internal/router"
	"Exam-Template-Wizard-Backend/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to config.yaml (default: ./config/config.yaml or ./config.yaml)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	backend, err := newBackend(cfg)
	if err != nil {
		logrus.WithError(err).WithField("driver", cfg.DraftStore.Driver).Fatal("failed to initialise draft store")
	}
	drafts := repository.NewDraftStore(backend, cfg.DraftStore.KeyPrefix)

	tokens := auth.ChainTokenSource{auth.HeaderTokenSource{}, auth.StaticTokenSource(cfg.Auth.StaticToken)}
	apiClient := client.NewTemplateApiClient(cfg.Remote.BaseURL, cfg.Remote.TimeoutSeconds, tokens)

	uploader, err := newUploader(cfg, apiClient)
	if err != nil {
		logrus.WithError(err).WithField("driver", cfg.Upload.Driver).Fatal("failed to initialise image uploader")
	}

	reconciler := service.NewReconciler(cfg.Remote.WrittenTypeTag, model.DurationUnit(cfg.Remote.DurationUnit))
	wizardService := service.NewWizardService(drafts, apiClient, uploader, reconciler)
	wizardHandler := api.NewWizardHandler(wizardService)

	r := router.SetupRouter(wizardHandler, cfg.CORS.AllowedOrigins)

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Server.Port,
		"draft_store": cfg.DraftStore.Driver,
		"upload":      cfg.Upload.Driver,
		"remote":      cfg.Remote.BaseURL,
	}).Info("template wizard backend starting")
	if err := r.Run(cfg.Server.Port); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

func newBackend(cfg *config.Config) (repository.Backend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.DraftStore.Driver {
	case "memory":
		logrus.Warn("drafts are kept in memory and are lost on restart")
		return repository.NewMemoryBackend(), nil
	case "redis":
		return repository.NewRedisBackend(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.DraftTTLHours)*time.Hour)
	case "sql":
		return repository.OpenSQLBackend(ctx, repository.SQLDriver(cfg.SQL.Driver), cfg.SQL.DSN)
	default:
		return repository.NewFileBackend(cfg.DraftStore.FilePath)
	}
}

func newUploader(cfg *config.Config, apiClient *client.TemplateApiClient) (service.ImageUploader, error) {
	if cfg.Upload.Driver != "s3" {
		return apiClient, nil
	}
	uploader, err := client.NewS3ImageUploader(client.S3Options{
		Endpoint:      cfg.S3.Endpoint,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		UseSSL:        cfg.S3.UseSSL,
		Bucket:        cfg.S3.Bucket,
		PublicBaseURL: cfg.S3.PublicBaseURL,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := uploader.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return uploader, nil
}
