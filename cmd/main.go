package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"triage-agent/handler"
	"triage-agent/internal/integrations/openai"
	"triage-agent/internal/integrations/paramstore"
	"triage-agent/internal/planner"
)

const defaultModel = "gpt-4o-mini"

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	_ = godotenv.Load() // optional .env for local runs
	apiKey := os.Getenv("OPENAI_API_KEY")
	paramPrefix := os.Getenv("PARAM_PREFIX")
	model := envOr("OPENAI_MODEL", defaultModel)
	baseURL := os.Getenv("OPENAI_BASE_URL")
	debugErrors := envBool("DEBUG_ERRORS")
	maxInputLen := envInt("MAX_INPUT_LENGTH", 8000)

	// ---- Completion client ----
	opts := []openai.Option{}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	switch {
	case apiKey != "":
		opts = append(opts, openai.WithAPIKey(apiKey))
	case paramPrefix != "":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}
		ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
		if err != nil {
			slog.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		opts = append(opts, openai.WithParamStore(ssmClient, paramPrefix))
	default:
		slog.Error("no provider credential configured", "hint", "set OPENAI_API_KEY or PARAM_PREFIX")
		os.Exit(1)
	}

	llm, err := openai.NewClient(opts...)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	// ---- Pipelines ----
	routes := make([]handler.Route, 0, 2)
	for _, ep := range []planner.Endpoint{planner.TriageEndpoint(), planner.PlanEndpoint()} {
		svc, err := planner.NewService(llm, model, ep, maxInputLen)
		if err != nil {
			slog.Error("failed to create planner service", "endpoint", ep.Name, "err", err)
			os.Exit(1)
		}
		routes = append(routes, handler.Route{
			Path:       ep.Path,
			InputField: ep.InputField,
			Generator:  svc,
		})
	}

	// ---- Handler ----
	h, err := handler.NewHandler(routes, handler.Config{DebugErrors: debugErrors})
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func envOr(key, def string) string {
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

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return false
	}
	return v
}
