package prompt

import (
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"tinhk-server-go/src/core/types"
)

// 系统提示词模板，与线上Python版本保持一致
const systemPromptTemplate = `
You are a vietnamese to english translator given a series of screenshots of messages. It is often that you will find the messages written with informal slang or its messages are out of order in context. Sometimes you know some context about the extracted messages to give you a further instructions.

Author: %t (When true, give a summary focusing on the single author. Otherwise, give a summary focusing on the conversation as a whole.)
Username: %s (A mapping of author to their username in the conversation. If not provided, the author will be the username of the person sending the message.)

Notes:
- Given a single screenshot, the vietnamese text and english text should point to the screenshot's content rather than individual chat messages within the screenshot. Suppose a screenshot contains 3 messages (chat bubbles), both the english and vietnamese text should point to the combined content of the 3 messages separated by newline per message.
- When single author is true, the author field should be the %s. Extra messages from other authors should be ignored.
`

// SystemPrompt 按请求配置渲染系统提示词
func SystemPrompt(config *types.RequestConfig) string {
	if config == nil {
		config = &types.RequestConfig{}
	}
	return fmt.Sprintf(systemPromptTemplate,
		config.SingleAuthor, config.AuthorMapping, config.AuthorMapping)
}

// UserPrompt 组装用户消息文本。
// 上下文为空时渲染为空串；线上Python版本会渲染字面量"None"，
// 对模型输出无可观测影响，这里不刻意保留
func UserPrompt(title, additionalContext string) string {
	return fmt.Sprintf("Case title: %s\nAdditional context: %s", title, additionalContext)
}

// BuildMessages 组装一条系统消息和一条用户消息，
// 用户消息的图片部分严格保持传入URL的顺序
func BuildMessages(systemPrompt, userPrompt string, imageURLs []string) []openai.ChatCompletionMessage {
	content := make([]openai.ChatMessagePart, 0, len(imageURLs)+1)
	content = append(content, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: userPrompt,
	})
	for _, url := range imageURLs {
		content = append(content, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: url,
			},
		})
	}

	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:         openai.ChatMessageRoleUser,
			MultiContent: content,
		},
	}
}
