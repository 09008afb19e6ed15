package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"tinhk-server-go/src/configs"
	"tinhk-server-go/src/core/types"
	"tinhk-server-go/src/core/utils"
)

// ErrModel 模型调用或输出解码失败
var ErrModel = errors.New("模型分析失败")

// caseAnalysisSchema 结构化输出的JSON Schema，与CaseAnalysis字段一一对应
var caseAnalysisSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"translations": {
			Type:        jsonschema.Array,
			Description: "A list of translations of the conversation in english",
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"index": {
						Type:        jsonschema.Integer,
						Description: "The index of the screenshot",
					},
					"author": {
						Type:        jsonschema.String,
						Description: "The username of the author of the message.",
					},
					"vietnamese_text": {
						Type:        jsonschema.String,
						Description: "The original text to be translated from vietnamese to english extracted from the screenshot",
					},
					"english_text": {
						Type:        jsonschema.String,
						Description: "The translated text in English corresponding to the original text",
					},
					"confidence": {
						Type:        jsonschema.String,
						Enum:        []string{"high", "medium", "low"},
						Description: "The confidence in the translation's accuracy",
					},
				},
				Required:             []string{"index", "author", "vietnamese_text", "english_text", "confidence"},
				AdditionalProperties: false,
			},
		},
		"summary": {
			Type:        jsonschema.String,
			Description: "A detailed summary of the conversation in english, highlighting key takeaways, lessons learned, and any other important information. Briefly also reference screenshot numbers to help direct readers to note-worthy parts of the conversation.",
		},
		"key_points": {
			Type:        jsonschema.String,
			Description: "A list of key points of the conversation in english, highlighting the most important information written in markdown format.",
		},
	},
	Required:             []string{"translations", "summary", "key_points"},
	AdditionalProperties: false,
}

// Provider 结构化分析客户端，凭证在进程启动时绑定一次
type Provider struct {
	config *configs.LLMConfig
	client *openai.Client
	logger *utils.Logger
}

// NewProvider 创建分析客户端
func NewProvider(config *configs.LLMConfig, logger *utils.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}, nil
}

// AnalyzeCase 调用结构化输出接口，把模型回复解码为CaseAnalysis
func (p *Provider) AnalyzeCase(ctx context.Context, messages []openai.ChatCompletionMessage) (*types.CaseAnalysis, error) {
	req := openai.ChatCompletionRequest{
		Model:    p.config.ModelName,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "case_analysis",
				Schema: &caseAnalysisSchema,
				Strict: true,
			},
		},
	}
	if p.config.Temperature > 0 {
		req.Temperature = float32(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		req.MaxTokens = p.config.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModel, err)
	}

	// 成本核算用
	p.logger.Info(fmt.Sprintf("模型调用完成，总token数: %d", resp.Usage.TotalTokens), map[string]interface{}{
		"model":             p.config.ModelName,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	})

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: 响应中没有choices", ErrModel)
	}

	analysis, err := DecodeAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return analysis, nil
}

// DecodeAnalysis 严格解码模型输出，未知字段或非法取值一律报错而不是纠偏
func DecodeAnalysis(raw string) (*types.CaseAnalysis, error) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()

	analysis := &types.CaseAnalysis{}
	if err := decoder.Decode(analysis); err != nil {
		return nil, fmt.Errorf("%w: 输出解码失败: %v", ErrModel, err)
	}

	if analysis.Translations == nil {
		return nil, fmt.Errorf("%w: 缺少translations字段", ErrModel)
	}
	for i, tr := range analysis.Translations {
		if !tr.Confidence.IsValid() {
			return nil, fmt.Errorf("%w: 第%d条翻译的confidence取值非法: %q", ErrModel, i, tr.Confidence)
		}
	}

	return analysis, nil
}
