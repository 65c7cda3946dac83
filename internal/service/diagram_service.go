package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"umlgen-backend/internal/config"
	"umlgen-backend/internal/metrics"
	"umlgen-backend/internal/model"
	"umlgen-backend/internal/plantuml"
	"umlgen-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
)

var codeFence = regexp.MustCompile("(?s)^```[A-Za-z]*\\s*(.*?)\\s*```$")

// DiagramService 处理生成和渲染两类请求，自身无可变状态
type DiagramService struct {
	chatModel    einoModel.BaseChatModel
	renderer     *plantuml.Renderer
	provider     string
	accessCode   string
	accessCheck  bool
	systemPrompt string
	userTemplate string
	timeout      time.Duration
}

// NewDiagramService chatModel 为 nil 表示未配置模型凭证，此时生成请求返回 ErrServerMisconfigured
func NewDiagramService(cfg *config.Config, chatModel einoModel.BaseChatModel) *DiagramService {
	systemPrompt := cfg.Prompt.System
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}
	userTemplate := cfg.Prompt.UserTemplate
	if userTemplate == "" {
		userTemplate = config.DefaultUserTemplate
	}
	provider := cfg.Model.Provider
	if provider == "" {
		provider = "openai"
	}

	return &DiagramService{
		chatModel:    chatModel,
		renderer:     plantuml.NewRenderer(cfg.PlantUML.ServerURL, cfg.PlantUML.Format),
		provider:     provider,
		accessCode:   cfg.Access.Code,
		accessCheck:  cfg.AccessCodeEnabled(),
		systemPrompt: systemPrompt,
		userTemplate: userTemplate,
		timeout:      cfg.Active().Timeout,
	}
}

// Generate 校验访问码和输入后调用模型，返回渲染地址、源码和说明
func (s *DiagramService) Generate(ctx context.Context, req model.GenerateRequest) (result *model.DiagramResult, err error) {
	defer func() {
		metrics.RecordRequest("generate", KindName(err))
	}()

	if s.accessCheck && subtle.ConstantTimeCompare([]byte(req.AccessCode), []byte(s.accessCode)) != 1 {
		return nil, newError(ErrUnauthorized, "Incorrect Access Code.", nil)
	}

	if strings.TrimSpace(req.Prompt) == "" {
		return nil, newError(ErrMissingInput, "No prompt provided", nil)
	}

	if s.chatModel == nil {
		return nil, newError(ErrServerMisconfigured, "Server is misconfigured: the model provider API key is not set.", nil)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	messages := []*schema.Message{
		schema.SystemMessage(s.systemPrompt),
		schema.UserMessage(s.userMessage(req.Prompt)),
	}

	start := time.Now()
	msg, err := s.chatModel.Generate(ctx, messages)
	metrics.ObserveUpstream(s.provider, time.Since(start))
	if err != nil {
		e := classifyUpstream(err)
		logger.WithFields(logrus.Fields{
			"provider": s.provider,
			"kind":     KindName(e),
		}).Warnf("model call failed: %v", err)
		return nil, e
	}
	if msg == nil {
		return nil, newError(ErrUpstreamInvalidOutput, "The model did not return a diagram. Please rephrase your prompt.", nil)
	}

	payload, err := parseDiagramPayload(msg.Content)
	if err != nil {
		logger.WithFields(logrus.Fields{"provider": s.provider}).Warnf("unexpected model output: %v", err)
		return nil, newError(ErrUpstreamInvalidOutput, "The model returned a malformed diagram response.", err)
	}
	if strings.TrimSpace(payload.PlantUMLCode) == "" {
		return nil, newError(ErrUpstreamInvalidOutput, "The model returned an empty diagram.", nil)
	}

	return &model.DiagramResult{
		Source:      payload.PlantUMLCode,
		Explanation: payload.Explanation,
		URL:         s.renderer.URL(payload.PlantUMLCode),
	}, nil
}

// Render 直接编码已有的 PlantUML 源码，不调用模型
func (s *DiagramService) Render(req model.RenderRequest) (result *model.DiagramResult, err error) {
	defer func() {
		metrics.RecordRequest("render", KindName(err))
	}()

	// 只拒绝空字符串，空白源码照常编码
	source := req.Source()
	if source == "" {
		return nil, newError(ErrMissingInput, "No PlantUML code provided", nil)
	}

	return &model.DiagramResult{
		Source: source,
		URL:    s.renderer.URL(source),
	}, nil
}

func (s *DiagramService) userMessage(prompt string) string {
	if strings.Contains(s.userTemplate, "%s") {
		return fmt.Sprintf(s.userTemplate, prompt)
	}
	return s.userTemplate + "\n\n" + prompt
}

// parseDiagramPayload 严格解析模型输出：必须恰好包含两个字符串字段
func parseDiagramPayload(content string) (*model.DiagramPayload, error) {
	content = strings.TrimSpace(content)
	if m := codeFence.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var raw struct {
		PlantUMLCode *string `json:"plantuml_code"`
		Explanation  *string `json:"explanation"`
	}
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode structured output: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after structured output")
	}
	if raw.PlantUMLCode == nil {
		return nil, errors.New("structured output is missing plantuml_code")
	}
	if raw.Explanation == nil {
		return nil, errors.New("structured output is missing explanation")
	}

	return &model.DiagramPayload{
		PlantUMLCode: *raw.PlantUMLCode,
		Explanation:  *raw.Explanation,
	}, nil
}
