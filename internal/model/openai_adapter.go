package model

import (
	"context"
	"errors"
	"fmt"
	"io"

	"umlgen-backend/internal/config"
	"umlgen-backend/internal/utils"
	"umlgen-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const diagramSchemaName = "diagram_response"

type openaiChatModel struct {
	client         *openai.Client
	model          string
	maxTokens      int
	temperature    float32
	responseFormat *openai.ChatCompletionResponseFormat
}

func newOpenAIChatModel(cfg config.ProviderConfig) (*openaiChatModel, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = utils.NewHTTPClient(cfg.Timeout, cfg.DebugRequest)

	// 严格模式的 JSON Schema，保证只返回 plantuml_code 和 explanation 两个字段
	def, err := jsonschema.GenerateSchemaForType(DiagramPayload{})
	if err != nil {
		return nil, fmt.Errorf("failed to build response schema: %w", err)
	}

	logger.Infof("Using OpenAI model: %s", cfg.Model)

	return &openaiChatModel{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		responseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   diagramSchemaName,
				Schema: def,
				Strict: true,
			},
		},
	}, nil
}

func (m *openaiChatModel) buildRequest(messages []*schema.Message, opts ...einoModel.Option) openai.ChatCompletionRequest {
	options := einoModel.GetCommonOptions(&einoModel.Options{
		Model: &m.model,
	}, opts...)

	req := openai.ChatCompletionRequest{
		Model:          m.model,
		Messages:       m.convertMessages(messages),
		ResponseFormat: m.responseFormat,
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = *options.Model
	}
	if m.maxTokens > 0 {
		req.MaxTokens = m.maxTokens
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if m.temperature > 0 {
		req.Temperature = m.temperature
	}
	if options.Temperature != nil {
		req.Temperature = *options.Temperature
	}
	return req
}

// Generate 实现 eino BaseChatModel 接口
func (m *openaiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	req := m.buildRequest(messages, opts...)
	logger.Debugf("openai generate: model=%s messages=%d", req.Model, len(req.Messages))

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("%w: %s", ErrRefusal, choice.Message.Refusal)
	}

	logger.Debugf("openai generate done: finish_reason=%s content_len=%d", choice.FinishReason, len(choice.Message.Content))

	return &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Message.Content,
	}, nil
}

func (m *openaiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	req := m.buildRequest(messages, opts...)
	req.Stream = true

	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}

	reader, writer := schema.Pipe[*schema.Message](16)

	go func() {
		defer stream.Close()
		defer writer.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				writer.Send(nil, err)
				return
			}

			if len(response.Choices) > 0 && response.Choices[0].Delta.Content != "" {
				closed := writer.Send(&schema.Message{
					Role:    schema.Assistant,
					Content: response.Choices[0].Delta.Content,
				}, nil)
				if closed {
					return
				}
			}
		}
	}()

	return reader, nil
}

func (m *openaiChatModel) convertMessages(messages []*schema.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case schema.Assistant:
			role = openai.ChatMessageRoleAssistant
		case schema.System:
			role = openai.ChatMessageRoleSystem
		}

		// 空的 assistant 消息会被 API 拒绝
		if msg.Content == "" && role == openai.ChatMessageRoleAssistant {
			continue
		}

		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return result
}
