package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/heldhq/held/internal/domain"
	"github.com/heldhq/held/internal/ports"
)

const warnPrefix = "⚠︎ "

// httpProvider speaks the chat-completions protocol shared by OpenAI,
// OpenRouter and the Llama API. The adapter supplies what differs.
type httpProvider struct {
	name       string
	label      string
	endpoint   string
	apiKey     string
	keyEnv     string
	httpClient *http.Client
	limiter    *rate.Limiter
	adapter    providerAdapter
}

type providerAdapter struct {
	setHeaders    func(*http.Request)
	parseResponse func(label string, body []byte) ports.Completion
}

func newHTTPProvider(name, label, endpoint, apiKey, keyEnv string, client *http.Client, limiter *rate.Limiter, adapter providerAdapter) *httpProvider {
	if client == nil {
		client = &http.Client{Timeout: domain.DefaultProviderTimeout}
	}
	return &httpProvider{
		name:       name,
		label:      label,
		endpoint:   endpoint,
		apiKey:     strings.TrimSpace(apiKey),
		keyEnv:     keyEnv,
		httpClient: client,
		limiter:    limiter,
		adapter:    adapter,
	}
}

func (p *httpProvider) Name() string {
	return p.name
}

func (p *httpProvider) Complete(ctx context.Context, model string, messages []domain.Turn, opts ports.CompletionOptions) ports.Completion {
	if p.apiKey == "" {
		return p.fail("Missing " + p.keyEnv)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return p.fail(fmt.Sprintf("%s: %v", p.label, err))
		}
	}

	payload := chatCompletionRequest{
		Model:       model,
		Messages:    toChatMessages(messages),
		MaxTokens:   clampMaxTokens(opts.MaxTokens),
		Temperature: opts.Temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return p.fail(fmt.Sprintf("%s: %v", p.label, err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return p.fail(fmt.Sprintf("%s: %v", p.label, err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	if p.adapter.setHeaders != nil {
		p.adapter.setHeaders(httpReq)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return p.fail(fmt.Sprintf("%s: %v", p.label, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.fail(fmt.Sprintf("%s: %v", p.label, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return p.fail(fmt.Sprintf("%s %d: %s", p.label, resp.StatusCode, string(raw)))
	}

	out := p.adapter.parseResponse(p.label, raw)
	out.Provider = p.name
	return out
}

func (p *httpProvider) fail(msg string) ports.Completion {
	return ports.Completion{OK: false, Content: warnPrefix + msg, Provider: p.name}
}

func openAICompatibleAdapter(referer string) providerAdapter {
	return providerAdapter{
		setHeaders: func(req *http.Request) {
			if referer != "" {
				req.Header.Set("HTTP-Referer", referer)
			}
		},
		parseResponse: parseChatCompletionResponse,
	}
}

func llamaAdapter() providerAdapter {
	return providerAdapter{parseResponse: parseLlamaResponse}
}

// parseChatCompletionResponse accepts an empty first choice as a successful,
// empty completion.
func parseChatCompletionResponse(label string, body []byte) ports.Completion {
	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ports.Completion{Content: fmt.Sprintf("%s%s: invalid JSON: %s", warnPrefix, label, preview(body, errorBodyPreview))}
	}
	return ports.Completion{OK: true, Content: response.FirstMessage()}
}

func parseLlamaResponse(label string, body []byte) ports.Completion {
	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return ports.Completion{Content: fmt.Sprintf("%s%s: invalid JSON: %s", warnPrefix, label, preview(body, errorBodyPreview))}
	}
	content := strings.TrimSpace(response.CompletionText())
	if content == "" {
		return ports.Completion{Content: warnPrefix + label + " returned no content"}
	}
	return ports.Completion{OK: true, Content: content}
}

var _ ports.ChatProvider = (*httpProvider)(nil)
