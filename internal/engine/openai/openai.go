package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/slok/qchat/internal/log"
	"github.com/slok/qchat/internal/model"
)

const (
	defaultModel        = openai.GPT4oMini
	defaultSystemPrompt = "You are an autonomous assistant. Carry out the user's request and reply with the final result."
)

// ChatClient is the subset of the OpenAI client used by the engine.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// EngineConfig is the configuration for the OpenAI engine.
type EngineConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	// Timeout bounds each request made by the engine, 0 means no timeout.
	Timeout time.Duration
	// Client overrides the OpenAI client, used for testing.
	Client ChatClient
	Logger log.Logger
}

func (c *EngineConfig) defaults() error {
	if c.Client == nil {
		if c.APIKey == "" {
			return fmt.Errorf("api key is required")
		}

		clientConfig := openai.DefaultConfig(c.APIKey)
		if c.BaseURL != "" {
			clientConfig.BaseURL = c.BaseURL
		}
		c.Client = openai.NewClientWithConfig(clientConfig)
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout can't be negative")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.OpenAI"})
	return nil
}

// Engine executes commands as single turn chat completions.
type Engine struct {
	client       ChatClient
	model        string
	systemPrompt string
	timeout      time.Duration
	logger       log.Logger
}

// NewEngine creates a new OpenAI engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Engine{
		client:       cfg.Client,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		timeout:      cfg.Timeout,
		logger:       cfg.Logger,
	}, nil
}

// Execute sends the command to the model and returns its reply.
func (e *Engine) Execute(ctx context.Context, command string) (*model.Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: command},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("empty response from openai (finish reason: %s)", resp.Choices[0].FinishReason)
	}

	e.logger.Debugf("Completion received in %s (model: %s, tokens: %d)", time.Since(start), resp.Model, resp.Usage.TotalTokens)

	return &model.Result{Text: text}, nil
}
