// Package providers implements agent.ModelClient against OpenAI-compatible
// chat-completions endpoints.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentcore/coreagent/internal/agent"
	"github.com/agentcore/coreagent/pkg/models"
)

const (
	defaultRequestTimeout = 60 * time.Second
	flexRequestTimeout    = 900 * time.Second
	maxRetryAttempts      = 8
)

// OpenAIProvider implements agent.ModelClient over
// github.com/sashabaranov/go-openai, assembling streamed tool-call
// fragments and falling back to a non-streaming request for endpoints that
// cannot deliver streamed tool calls.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	baseURL     string
	serviceTier string
	log         *slog.Logger
}

// Option configures an OpenAIProvider.
type Option func(*OpenAIProvider)

func WithServiceTier(tier string) Option {
	return func(p *OpenAIProvider) { p.serviceTier = tier }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *OpenAIProvider) { p.log = l }
}

// New builds a provider for the given API key, base URL, and model name.
func New(apiKey, baseURL, model string, opts ...Option) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	p := &OpenAIProvider{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		baseURL: baseURL,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// nonStreamingToolCallBaseURLs lists substrings of base URLs known not to
// support streamed tool calls reliably; matching providers get a single
// non-streaming request synthesized into the same event sequence.
var nonStreamingToolCallBaseURLs = []string{"cerebras"}

func (p *OpenAIProvider) needsNonStreamingFallback() bool {
	lower := strings.ToLower(p.baseURL)
	for _, s := range nonStreamingToolCallBaseURLs {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func (p *OpenAIProvider) requestTimeout() time.Duration {
	if p.serviceTier == "flex" {
		return flexRequestTimeout
	}
	return defaultRequestTimeout
}

func toOpenAIMessages(system string, msgs []models.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range msgs {
		om := openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			argsJSON, _ := json.Marshal(tc.Arguments)
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(argsJSON),
				},
			})
		}
		out = append(out, om)
	}
	return out
}

func toOpenAITools(specs []agent.FunctionSpec) []openai.Tool {
	out := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Function.Name,
				Description: s.Function.Description,
				Parameters:  s.Function.Parameters,
			},
		})
	}
	return out
}

// toolCallBuffer accumulates one partially-streamed tool call, keyed by the
// provider-assigned fragment index.
type toolCallBuffer struct {
	id      string
	name    string
	argsBuf strings.Builder
}

// Stream opens a streaming chat-completions request and returns a channel
// of events. The channel is closed after a terminal (done/error) event.
func (p *OpenAIProvider) Stream(ctx context.Context, prompt agent.Prompt) (<-chan agent.StreamEvent, error) {
	if p.needsNonStreamingFallback() {
		return p.streamViaNonStreamingFallback(ctx, prompt)
	}

	ch := make(chan agent.StreamEvent, 8)
	req := openai.ChatCompletionRequest{
		Model:         p.model,
		Messages:      toOpenAIMessages(prompt.System, prompt.Messages),
		Tools:         toOpenAITools(prompt.Tools),
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	}
	if p.serviceTier != "" {
		req.ServiceTier = p.serviceTier
	}

	stream, err := p.streamWithRetry(ctx, req)
	if err != nil {
		go func() {
			ch <- agent.StreamEvent{Type: agent.StreamError, Content: err.Error()}
			close(ch)
		}()
		return ch, nil
	}

	go func() {
		defer close(ch)
		defer stream.Close()

		buffers := make(map[int]*toolCallBuffer)

		for {
			if ctx.Err() != nil {
				ch <- agent.StreamEvent{Type: agent.StreamError, Content: ctx.Err().Error()}
				return
			}
			resp, err := stream.Recv()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				ch <- agent.StreamEvent{Type: agent.StreamError, Content: err.Error()}
				return
			}
			if err != nil {
				if isStreamEOF(err) {
					flushToolCalls(ch, buffers)
					ch <- agent.StreamEvent{Type: agent.StreamDone}
					return
				}
				ch <- agent.StreamEvent{Type: agent.StreamError, Content: err.Error()}
				return
			}
			if len(resp.Choices) == 0 {
				if resp.Usage != nil {
					flushToolCalls(ch, buffers)
					ch <- agent.StreamEvent{Type: agent.StreamDone, Usage: models.Usage{
						InputTokens:  resp.Usage.PromptTokens,
						OutputTokens: resp.Usage.CompletionTokens,
					}}
					return
				}
				continue
			}

			choice := resp.Choices[0]
			if choice.Delta.Content != "" {
				ch <- agent.StreamEvent{Type: agent.StreamText, Content: choice.Delta.Content}
			}
			for _, tc := range choice.Delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				buf, ok := buffers[idx]
				if !ok {
					buf = &toolCallBuffer{}
					buffers[idx] = buf
				}
				if tc.ID != "" {
					buf.id = tc.ID
				}
				if tc.Function.Name != "" {
					buf.name = tc.Function.Name
				}
				buf.argsBuf.WriteString(tc.Function.Arguments)
			}

			if choice.FinishReason != "" {
				flushToolCalls(ch, buffers)
				if resp.Usage != nil {
					ch <- agent.StreamEvent{Type: agent.StreamDone, Usage: models.Usage{
						InputTokens:  resp.Usage.PromptTokens,
						OutputTokens: resp.Usage.CompletionTokens,
					}}
					return
				}
			}
		}
	}()

	return ch, nil
}

func flushToolCalls(ch chan agent.StreamEvent, buffers map[int]*toolCallBuffer) {
	indices := make([]int, 0, len(buffers))
	for idx := range buffers {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		buf := buffers[idx]
		var args map[string]any
		if err := json.Unmarshal([]byte(buf.argsBuf.String()), &args); err != nil {
			args = map[string]any{}
		}
		ch <- agent.StreamEvent{Type: agent.StreamToolCall, ToolCall: models.ToolCall{
			ID:        buf.id,
			Name:      buf.name,
			Arguments: args,
		}}
		delete(buffers, idx)
	}
}

func isStreamEOF(err error) bool {
	return err != nil && strings.Contains(err.Error(), "EOF")
}

// streamViaNonStreamingFallback performs a single non-streaming request and
// synthesizes the same event sequence (text, zero or more tool_call, done).
func (p *OpenAIProvider) streamViaNonStreamingFallback(ctx context.Context, prompt agent.Prompt) (<-chan agent.StreamEvent, error) {
	ch := make(chan agent.StreamEvent, 8)
	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: toOpenAIMessages(prompt.System, prompt.Messages),
		Tools:    toOpenAITools(prompt.Tools),
	}
	if p.serviceTier != "" {
		req.ServiceTier = p.serviceTier
	}

	go func() {
		defer close(ch)
		ctx, cancel := context.WithTimeout(ctx, p.requestTimeout())
		defer cancel()

		resp, err := p.completeWithRetry(ctx, req)
		if err != nil {
			ch <- agent.StreamEvent{Type: agent.StreamError, Content: err.Error()}
			return
		}
		if len(resp.Choices) == 0 {
			ch <- agent.StreamEvent{Type: agent.StreamError, Content: "empty completion response"}
			return
		}
		msg := resp.Choices[0].Message
		if msg.Content != "" {
			ch <- agent.StreamEvent{Type: agent.StreamText, Content: msg.Content}
		}
		for _, tc := range msg.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				args = map[string]any{}
			}
			ch <- agent.StreamEvent{Type: agent.StreamToolCall, ToolCall: models.ToolCall{
				ID: tc.ID, Name: tc.Function.Name, Arguments: args,
			}}
		}
		ch <- agent.StreamEvent{Type: agent.StreamDone, Usage: models.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}}
	}()
	return ch, nil
}

// Complete performs a non-streaming request used only by compaction.
func (p *OpenAIProvider) Complete(ctx context.Context, msgs []models.Message) (string, models.Usage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.requestTimeout())
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: toOpenAIMessages("", msgs),
	}
	resp, err := p.completeWithRetry(ctx, req)
	if err != nil {
		return "", models.Usage{}, err
	}
	if len(resp.Choices) == 0 {
		return "", models.Usage{}, fmt.Errorf("openai: empty completion response")
	}
	return resp.Choices[0].Message.Content, models.Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (p *OpenAIProvider) streamWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		stream, err := p.client.CreateChatCompletionStream(ctx, req)
		if err == nil {
			return stream, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
		p.log.Warn("model stream request failed, retrying", "attempt", attempt+1, "error", err)
		if !sleepBackoff(ctx, attempt) {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (p *OpenAIProvider) completeWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isTransient(err) {
			return openai.ChatCompletionResponse{}, err
		}
		p.log.Warn("model completion request failed, retrying", "attempt", attempt+1, "error", err)
		if !sleepBackoff(ctx, attempt) {
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
	}
	return openai.ChatCompletionResponse{}, lastErr
}

func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	return true
}

func sleepBackoff(ctx context.Context, attempt int) bool {
	backoff := time.Duration(math.Pow(2, float64(attempt))) * 250 * time.Millisecond
	if backoff > 10*time.Second {
		backoff = 10 * time.Second
	}
	t := time.NewTimer(backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
