// Package app assembles the webservice from configuration
package app

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"whisper-asr-webservice/internal/api/server"
	v1routes "whisper-asr-webservice/internal/api/v1/routes"
	"whisper-asr-webservice/internal/api/v1/services"
	"whisper-asr-webservice/internal/app/audio"
	"whisper-asr-webservice/internal/app/dispatcher"
	"whisper-asr-webservice/internal/app/engine"
	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/inference/remote"
	"whisper-asr-webservice/internal/app/inference/stub"
	"whisper-asr-webservice/internal/app/inference/worker"
	"whisper-asr-webservice/internal/app/lifecycle"
	"whisper-asr-webservice/internal/app/modelstore"
	"whisper-asr-webservice/internal/config"

	// Engine variants register themselves
	_ "whisper-asr-webservice/internal/app/engine/fasterwhisper"
	_ "whisper-asr-webservice/internal/app/engine/openaiwhisper"
	_ "whisper-asr-webservice/internal/app/engine/whisperx"
)

// StoreSet builds the weights cache and its fetchers
var StoreSet = wire.NewSet(provideCatalogue, provideFetcher, provideStore)

// ServiceSet builds everything behind the HTTP server
var ServiceSet = wire.NewSet(
	StoreSet,
	provideNoProgress,
	provideRegistry,
	wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
	wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
	lifecycle.NewMetrics,
	dispatcher.NewMetrics,
	provideRuntime,
	provideEngines,
	provideManager,
	provideDispatcher,
	provideNormalizer,
	provideASRService,
	provideModelService,
	wire.Struct(new(v1routes.ServiceContainer), "*"),
	provideServer,
	wire.Struct(new(Service), "*"),
)

func provideNoProgress() modelstore.Progress { return nil }

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideCatalogue(cfg *config.Config) (*modelstore.Catalogue, error) {
	return modelstore.LoadCatalogue(cfg.Catalogue)
}

// provideFetcher prefers the bucket mirror when one is configured and falls back
// to the catalogue URLs
func provideFetcher(cfg *config.Config, progress modelstore.Progress, logger *zap.Logger) (modelstore.Fetcher, error) {
	direct := modelstore.NewHTTPFetcher(logger)
	direct.Progress = progress
	if !cfg.Storage.Enabled() {
		return direct, nil
	}

	mirror, err := modelstore.NewMinioFetcher(modelstore.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	}, logger)
	if err != nil {
		return nil, err
	}
	mirror.Progress = progress
	return modelstore.Chain{mirror, direct}, nil
}

func provideStore(cfg *config.Config, catalogue *modelstore.Catalogue, fetcher modelstore.Fetcher, logger *zap.Logger) *modelstore.Store {
	return modelstore.New(cfg.ModelPath, catalogue, fetcher, logger)
}

func provideRuntime(cfg *config.Config, logger *zap.Logger) inference.Runtime {
	switch cfg.Runtime {
	case "openai":
		return remote.New(remote.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}, logger)
	case "stub":
		return stub.New(0)
	default:
		return worker.New(worker.Config{Python: cfg.WorkerPython, ScriptDir: cfg.ModelPath}, logger)
	}
}

// provideEngines builds the engine selected by ASR_ENGINE. The remote runtime keeps
// no local weights, so the store is only attached for local runtimes.
func provideEngines(cfg *config.Config, runtime inference.Runtime, store *modelstore.Store, logger *zap.Logger) (*engine.Set, error) {
	deps := engine.Deps{
		Runtime:      runtime,
		Quantization: cfg.Quantization,
		HFToken:      cfg.HFToken,
		BatchSize:    cfg.BatchSize,
		Logger:       logger,
	}
	if cfg.Runtime != "openai" {
		deps.Weights = store
	}
	return engine.Build(deps, cfg.Engine)
}

func provideManager(cfg *config.Config, engines *engine.Set, metrics *lifecycle.Metrics, logger *zap.Logger) *lifecycle.Manager {
	return lifecycle.New(engines, lifecycle.Config{
		IdleTimeout:     cfg.IdleTimeout,
		MaxLoadedModels: cfg.MaxLoadedModels,
		LoadTimeout:     cfg.LoadTimeout,
	}, lifecycle.WithLogger(logger), lifecycle.WithMetrics(metrics))
}

func provideDispatcher(manager *lifecycle.Manager, engines *engine.Set, metrics *dispatcher.Metrics, logger *zap.Logger) *dispatcher.Dispatcher {
	return dispatcher.New(manager, engines, dispatcher.WithLogger(logger), dispatcher.WithMetrics(metrics))
}

func provideNormalizer(logger *zap.Logger) audio.Normalizer {
	return audio.NewFFmpegNormalizer(logger)
}

func provideASRService(cfg *config.Config, d *dispatcher.Dispatcher, normalizer audio.Normalizer, store *modelstore.Store, logger *zap.Logger) services.ASRService {
	return services.NewASRService(d, normalizer, store.Catalogue(), cfg.DefaultKey(), logger)
}

func provideModelService(cfg *config.Config, manager *lifecycle.Manager) services.ModelService {
	return services.NewModelService(manager, cfg.DefaultKey())
}

func provideServer(cfg *config.Config, container *v1routes.ServiceContainer, gatherer prometheus.Gatherer, logger *zap.Logger) *server.Server {
	return server.NewServer(cfg.Server, container, gatherer, logger)
}
