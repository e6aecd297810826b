// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/danielhkuo/chantier/actions"
	"github.com/danielhkuo/chantier/models"
)

var (
	ErrUnavailable   = errors.New("assistant is not configured")
	ErrEmptyPrompt   = errors.New("prompt is required")
	ErrRateLimited   = errors.New("assistant rate limit exceeded")
	ErrTooManyRounds = errors.New("assistant did not answer within the tool call limit")
	ErrEmptyAnswer   = errors.New("empty response from the model")
)

// MaxRounds bounds the model calls made for one prompt
const MaxRounds = 6

const temperature = 0.2

// ChatModel is the part of a langchaingo model the assistant uses
type ChatModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// NewOpenAIModel builds the OpenAI chat model. baseURL may be empty.
func NewOpenAIModel(token, model, baseURL string) (ChatModel, error) {
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return llm, nil
}

// Assistant answers prompts with the model, dispatching its tool calls
type Assistant struct {
	model    ChatModel
	tools    *Toolbox
	executor *Executor
	actions  actions.Store
	limiter  *rate.Limiter
	metrics  *Metrics
}

// NewAssistant wires an assistant. A nil model leaves only text
// confirmations working; other prompts return ErrUnavailable.
func NewAssistant(model ChatModel, tools *Toolbox, executor *Executor, store actions.Store, limiter *rate.Limiter, metrics *Metrics) *Assistant {
	return &Assistant{
		model:    model,
		tools:    tools,
		executor: executor,
		actions:  store,
		limiter:  limiter,
		metrics:  metrics,
	}
}

// Enabled reports whether a model is configured
func (a *Assistant) Enabled() bool {
	return a.model != nil
}

// Query answers one prompt
func (a *Assistant) Query(ctx context.Context, req models.QueryRequest) (models.QueryResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return models.QueryResponse{}, ErrEmptyPrompt
	}
	sess := Session{
		ProjectID:      req.ProjectID,
		UserRole:       req.UserRole,
		Language:       NormalizeLanguage(req.Language),
		ConversationID: req.ConversationID,
	}

	if resp, ok, err := a.confirmByText(ctx, sess, req.Prompt); ok || err != nil {
		return resp, err
	}

	if a.model == nil {
		return models.QueryResponse{}, ErrUnavailable
	}

	messages := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt(sess))}
	if summary := summarizeMaterials(req.Materials); summary != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, "Materials data:\n"+summary))
	}
	if len(req.CustomTables) > 0 && string(req.CustomTables) != "null" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, "Custom tables:\n"+string(req.CustomTables)))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	answer, pending, err := a.run(ctx, sess, messages)
	if err != nil {
		return models.QueryResponse{}, err
	}
	return models.QueryResponse{Answer: answer, Language: sess.Language, PendingAction: pending}, nil
}

// confirmByText executes the latest pending action of the conversation when
// the prompt is a bare confirmation. ok is false when nothing was pending.
func (a *Assistant) confirmByText(ctx context.Context, sess Session, prompt string) (models.QueryResponse, bool, error) {
	if sess.ConversationID == "" || !IsConfirmation(prompt) {
		return models.QueryResponse{}, false, nil
	}
	pending, err := a.actions.MostRecentPending(ctx, sess.ConversationID)
	if errors.Is(err, actions.ErrNotFound) {
		return models.QueryResponse{}, false, nil
	}
	if err != nil {
		return models.QueryResponse{}, false, err
	}

	executed, err := a.executor.Execute(ctx, pending.ID)
	if err != nil {
		return models.QueryResponse{}, false, err
	}

	answer := "C'est fait : " + pending.Preview.NLP
	if sess.Language == "en" {
		answer = "Done: " + pending.Preview.NLP
	}
	if executed.Status == models.StatusAlreadyExecuted {
		answer = "Cette modification a déjà été appliquée."
		if sess.Language == "en" {
			answer = "This change was already applied."
		}
	}
	return models.QueryResponse{Answer: answer, Language: sess.Language, ExecutedAction: &executed}, true, nil
}

func (a *Assistant) run(ctx context.Context, sess Session, messages []llms.MessageContent) (string, *models.PendingAction, error) {
	var pending *models.PendingAction
	tools := Tools()

	for round := 0; round < MaxRounds; round++ {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				a.metrics.llmCall("rate_limited")
				return "", nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
			}
		}

		resp, err := a.model.GenerateContent(ctx, messages, llms.WithTools(tools), llms.WithTemperature(temperature))
		if err != nil {
			a.metrics.llmCall("error")
			return "", nil, fmt.Errorf("model call: %w", err)
		}
		a.metrics.llmCall("ok")
		if resp == nil || len(resp.Choices) == 0 {
			return "", nil, ErrEmptyAnswer
		}
		choice := resp.Choices[0]

		if len(choice.ToolCalls) == 0 {
			answer := strings.TrimSpace(choice.Content)
			if answer == "" {
				return "", nil, ErrEmptyAnswer
			}
			return answer, pending, nil
		}

		call := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			call.Parts = append(call.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			call.Parts = append(call.Parts, tc)
		}
		messages = append(messages, call)

		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			slog.Debug("assistant tool call", "tool", tc.FunctionCall.Name, "round", round)
			content, p := a.tools.Call(ctx, sess, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
			if p != nil {
				pending = p
			}
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       tc.FunctionCall.Name,
					Content:    content,
				}},
			})
		}
	}

	a.metrics.llmCall("max_rounds")
	return "", nil, ErrTooManyRounds
}
