package container

import (
	"errors"
	"fmt"
	"log/slog"

	"retrievalagent/carbon"
	"retrievalagent/database"
	"retrievalagent/enrichment"
	"retrievalagent/geo"
	"retrievalagent/interests"
	"retrievalagent/internal/config"
	"retrievalagent/retrieval"
	"retrievalagent/websearch"
	"retrievalagent/websearch/providers"
)

// Container контейнер зависимостей приложения.
// Собирает источники мест, обогащение, советника и контроллер поиска по конфигурации.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Partition *geo.Partition

	// Каталог
	PlacesDB *database.PlacesDB

	// Источники мест
	Google      *providers.GoogleProvider
	Catalog     *providers.CatalogProvider
	Elastic     *providers.ElasticProvider
	Reliability *websearch.ReliabilityManager
	Router      *websearch.ProviderRouter

	// Обогащение финалистов
	DetailsCache *enrichment.DetailsCache
	Enricher     *enrichment.Enricher

	Advisor    retrieval.Advisor
	Controller *retrieval.Controller
}

// NewContainer создает контейнер; при ошибке освобождает уже открытые ресурсы
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{
		Config:    cfg,
		Logger:    logger,
		Partition: geo.SingaporePartition(),
	}

	steps := []struct {
		name string
		init func() error
	}{
		{"catalog", c.initCatalog},
		{"providers", c.initProviders},
		{"enrichment", c.initEnrichment},
		{"advisor", c.initAdvisor},
		{"controller", c.initController},
	}
	for _, step := range steps {
		if err := step.init(); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
	}

	logger.Info("container initialized",
		"providers", c.Router.GetName(),
		"strategy", cfg.Providers.Strategy,
		"enrichment", c.Enricher != nil,
		"advisor", c.Advisor != nil)
	return c, nil
}

// initEnrichment подключает источники деталей: Google и каталог
func (c *Container) initEnrichment() error {
	if !c.Config.Enrichment.Enabled {
		return nil
	}

	var details []enrichment.DetailsProvider
	if c.Google != nil {
		details = append(details, c.Google)
	}
	if c.Catalog != nil {
		details = append(details, c.Catalog)
	}
	if len(details) == 0 {
		c.Logger.Info("no details providers configured, enrichment disabled")
		return nil
	}

	if c.Config.Enrichment.Cache.Enabled {
		c.DetailsCache = enrichment.NewDetailsCache(c.Config.Enrichment.Cache)
	}
	c.Enricher = enrichment.NewEnricher(details, c.DetailsCache, c.Logger)
	return nil
}

// initAdvisor создает LLM советника, если он включен
func (c *Container) initAdvisor() error {
	if !c.Config.Advisor.Enabled {
		return nil
	}
	advisor, err := retrieval.NewLLMAdvisor(retrieval.LLMAdvisorConfig{
		BaseURL: c.Config.Advisor.BaseURL,
		APIKey:  c.Config.Advisor.APIKey,
		Model:   c.Config.Advisor.Model,
		Timeout: c.Config.Advisor.Timeout,
	})
	if err != nil {
		return err
	}
	c.Advisor = advisor
	return nil
}

func (c *Container) initController() error {
	cacheConfig := c.Config.Providers.Cache
	opts := retrieval.Options{
		Provider:    c.Router,
		Partition:   c.Partition,
		Config:      c.Config.Controller,
		Mapper:      interests.NewKeywordMapper(nil),
		Enricher:    c.Enricher,
		Scorer:      carbon.DefaultScorer(),
		Cache:       &cacheConfig,
		RetryDelays: c.Config.Providers.RetryDelays,
		Logger:      c.Logger,
	}
	if c.Advisor != nil {
		opts.Advisor = c.Advisor
	}

	controller, err := retrieval.NewController(opts)
	if err != nil {
		return err
	}
	c.Controller = controller
	return nil
}

// Close освобождает ресурсы контейнера
func (c *Container) Close() error {
	var errs []error
	if c.DetailsCache != nil {
		c.DetailsCache.Close()
	}
	if c.PlacesDB != nil {
		if err := c.PlacesDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close places database: %w", err))
		}
		c.PlacesDB = nil
	}
	return errors.Join(errs...)
}
