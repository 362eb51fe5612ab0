package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"storefront-agent/handler"
	"storefront-agent/internal/catalog"
	"storefront-agent/internal/integrations/openai"
	"storefront-agent/internal/integrations/paramstore"
	"storefront-agent/internal/repository"
	"storefront-agent/internal/session"
	"storefront-agent/internal/usecase"
)

func main() {
	ctx := context.Background()

	// Best-effort for local development; Lambda sets real env vars.
	_ = godotenv.Load()

	// ---- Configuration (read only here) ----
	paramPrefix := mustEnv("PARAM_PREFIX")
	catalogTable := os.Getenv("CATALOG_TABLE")
	catalogFile := envDefault("CATALOG_FILE", "data/products.json")
	maxHistoryMessages := envInt("MAX_HISTORY_MESSAGES", 20)
	fallbackTimeout := time.Duration(envInt("FALLBACK_TIMEOUT_SECONDS", 10)) * time.Second

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	cat, err := loadCatalog(ctx, cfg, catalogTable, catalogFile)
	if err != nil {
		slog.Error("failed to load product catalog", "err", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded", "products", cat.Len())

	openaiClient, err := openai.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	sessions := session.NewStore(maxHistoryMessages)

	// ---- Handler ----
	chatService, err := usecase.NewChatService(cat, sessions, openaiClient, ssmClient, paramPrefix, fallbackTimeout, slog.Default())
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

// loadCatalog prefers the DynamoDB table when configured and falls
// back to the bundled JSON file.
func loadCatalog(ctx context.Context, cfg aws.Config, catalogTable, catalogFile string) (*catalog.Catalog, error) {
	if catalogTable != "" {
		source, err := repository.NewCatalogSource(awsdynamodb.NewFromConfig(cfg), catalogTable)
		if err != nil {
			return nil, err
		}
		products, err := source.LoadProducts(ctx)
		if err != nil {
			return nil, err
		}
		return catalog.New(products)
	}
	return catalog.LoadFile(catalogFile)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
