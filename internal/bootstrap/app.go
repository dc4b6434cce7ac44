package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lawrag/internal/ai"
	"lawrag/internal/config"
	"lawrag/internal/embedding"
	"lawrag/internal/extract"
	"lawrag/internal/ingest"
	"lawrag/internal/model"
	mysqlClient "lawrag/internal/platform/mysql"
	rabbitmqClient "lawrag/internal/platform/rabbitmq"
	redisClient "lawrag/internal/platform/redis"
	"lawrag/internal/rag"
	"lawrag/internal/repository"
	"lawrag/internal/segmenter"
	"lawrag/internal/vectorindex"
	"lawrag/internal/worker"
)

// App wires every component of the service together. The HTTP layer
// and the parse worker both hang off this one composition root.
type App struct {
	Config *config.Config
	Logger *zap.SugaredLogger
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Qdrant        *vectorindex.QdrantIndex
	Index         vectorindex.Index
	Gateway       *embedding.Gateway
	Synthesizer   *rag.Synthesizer
	DocumentRepo  *repository.DocumentRepository
	TaskPublisher *rabbitmqClient.TaskPublisher
	ParseWorker   *worker.ParseWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}
	sugar := logger.Sugar()

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Document{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(cfg.AI)
	if err != nil {
		return nil, err
	}

	gateway := embedding.NewGateway(provider, embedding.Config{
		BatchSize:     cfg.Embedding.BatchSize,
		BatchInterval: time.Duration(cfg.Embedding.BatchIntervalMS) * time.Millisecond,
		MaxAttempts:   cfg.Embedding.MaxAttempts,
		BaseDelay:     time.Duration(cfg.Embedding.BaseDelaySeconds) * time.Second,
	}, sugar)

	qdrant, err := vectorindex.NewQdrantIndex(ctx, vectorindex.QdrantConfig{
		URL:            cfg.Index.URL,
		APIKey:         cfg.Index.APIKey,
		Collection:     cfg.Index.Collection,
		Dimension:      cfg.AI.Dimension,
		ChunkTextLimit: cfg.Index.ChunkTextLimit,
		Timeout:        time.Duration(cfg.Index.TimeoutSeconds) * time.Second,
	}, sugar)
	if err != nil {
		return nil, err
	}

	seg, err := segmenter.New(cfg.Segmenter.ChunkSize, cfg.Segmenter.ChunkOverlap, cfg.Segmenter.StructureAware)
	if err != nil {
		return nil, err
	}

	documentRepo := repository.NewDocumentRepository(mysqlDB, sugar)
	pipeline := ingest.NewPipeline(
		extract.NewFileExtractor(),
		seg,
		gateway,
		qdrant,
		documentRepo,
		sugar,
	)
	parseWorker := worker.NewParseWorker(mqConn, pipeline, cfg.RabbitMQ.ParseTaskQueue, sugar)
	if err := parseWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start parse worker failed: %w", err)
	}

	synthesizer := rag.NewSynthesizer(gateway, qdrant, provider, rag.Config{
		TopK:          cfg.Ask.TopK,
		PreviewLimit:  cfg.Ask.PreviewLimit,
		HistoryWindow: cfg.Ask.HistoryWindow,
		MaxAttempts:   cfg.Ask.MaxAttempts,
		BaseDelay:     time.Duration(cfg.Ask.BaseDelaySeconds) * time.Second,
		Model:         cfg.AI.ChatModel,
	}, sugar)

	return &App{
		Config:        cfg,
		Logger:        sugar,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		Qdrant:        qdrant,
		Index:         qdrant,
		Gateway:       gateway,
		Synthesizer:   synthesizer,
		DocumentRepo:  documentRepo,
		TaskPublisher: rabbitmqClient.NewTaskPublisher(mqConn, cfg.RabbitMQ.ParseTaskQueue),
		ParseWorker:   parseWorker,
		StartedAt:     time.Now(),
	}, nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newProvider(cfg config.AIConfig) (ai.Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return ai.NewOpenAIClient(ai.OpenAIConfig{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
			Dimension:      cfg.Dimension,
		}), nil
	case config.ProviderGemini:
		return ai.NewGeminiClient(ai.GeminiConfig{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			ChatModel:      cfg.ChatModel,
			EmbeddingModel: cfg.EmbeddingModel,
			Dimension:      cfg.Dimension,
		}), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.ParseWorker != nil {
		a.ParseWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
