// Package ai answers natural-language questions about tracked tickers.
// A Gemini model drives the conversation and pulls numbers through a
// single market-data function tool, so every figure in an answer comes
// from the same datasets the dashboard renders.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/marketdata"
)

const defaultModel = "gemini-1.5-flash"

// maxToolRounds bounds the function-calling loop. A well-behaved model
// needs one round per dataset it consults.
const maxToolRounds = 8

const toolName = "get_market_data"

// QueryService implements domain.QueryService on Gemini.
type QueryService struct {
	client *genai.Client
	model  string
	data   *marketdata.Service
	logger *slog.Logger
}

var _ domain.QueryService = (*QueryService)(nil)

func NewQueryService(ctx context.Context, apiKey, model string, data *marketdata.Service, logger *slog.Logger) (*QueryService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &QueryService{
		client: client,
		model:  model,
		data:   data,
		logger: logger,
	}, nil
}

func (s *QueryService) Close() error {
	return s.client.Close()
}

// Query runs one conversational turn, including any tool round-trips the
// model requests.
func (s *QueryService) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	model := s.client.GenerativeModel(s.model)
	model.Tools = []*genai.Tool{marketTool()}
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt(req.WatchlistSymbols))},
	}

	cs := model.StartChat()
	cs.History = historyContents(req.History)

	res, err := cs.SendMessage(ctx, genai.Text(req.Query))
	if err != nil {
		return nil, domain.WrapOp(fmt.Errorf("send message: %w", err), "QueryService.Query")
	}

	sources := make([]string, 0, 4)
	seen := make(map[string]bool)

	for round := 0; round < maxToolRounds; round++ {
		call, ok := firstFunctionCall(res)
		if !ok {
			return &domain.QueryResult{
				Answer:  responseText(res),
				Sources: sources,
			}, nil
		}

		result, source, err := dispatchTool(s.data, call.Name, call.Args)
		if err != nil {
			// Feed the failure back so the model can recover or explain.
			s.logger.Warn("market data tool call failed",
				"tool", call.Name, "error", err)
			result = map[string]any{"error": err.Error()}
		} else if !seen[source] {
			seen[source] = true
			sources = append(sources, source)
		}

		res, err = cs.SendMessage(ctx, genai.FunctionResponse{
			Name:     call.Name,
			Response: result,
		})
		if err != nil {
			return nil, domain.WrapOp(fmt.Errorf("tool response: %w", err), "QueryService.Query")
		}
	}

	return nil, domain.Errorf(domain.EINTERNAL, "", "The assistant could not complete the request.")
}

// marketTool declares the single function the model may call.
func marketTool() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name: toolName,
				Description: "Fetches a market dataset for one ticker symbol. " +
					"Datasets: " + strings.Join(marketdata.DatasetNames, ", ") + ".",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"dataset": {
							Type:        genai.TypeString,
							Description: "Which dataset to fetch.",
							Enum:        marketdata.DatasetNames,
						},
						"symbol": {
							Type:        genai.TypeString,
							Description: "Ticker symbol, e.g. AAPL.",
						},
					},
					Required: []string{"dataset", "symbol"},
				},
			},
		},
	}
}

func systemPrompt(watchlist []string) string {
	var b strings.Builder
	b.WriteString("You are the TickerDeck market assistant. ")
	b.WriteString("Answer questions about stocks using the " + toolName + " tool; ")
	b.WriteString("never invent prices or figures you did not fetch. ")
	b.WriteString("Be concise and note the dataset each figure came from.")
	if len(watchlist) > 0 {
		b.WriteString(" The user's watchlist: ")
		b.WriteString(strings.Join(watchlist, ", "))
		b.WriteString(". Questions without an explicit symbol refer to these.")
	}
	return b.String()
}

// historyContents converts prior dashboard turns to chat history. The
// dashboard says "assistant"; the SDK wants "model".
func historyContents(turns []domain.QueryTurn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == "assistant" || turn.Role == "model" {
			role = "model"
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}
	return out
}

func firstFunctionCall(res *genai.GenerateContentResponse) (genai.FunctionCall, bool) {
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return genai.FunctionCall{}, false
	}
	for _, part := range res.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			return call, true
		}
	}
	return genai.FunctionCall{}, false
}

func responseText(res *genai.GenerateContentResponse) string {
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// dispatchTool executes one model-requested fetch. The source label is
// what the API reports back to the dashboard as "sources".
func dispatchTool(data *marketdata.Service, name string, args map[string]any) (map[string]any, string, error) {
	if name != toolName {
		return nil, "", fmt.Errorf("unknown tool %q", name)
	}
	dataset, _ := args["dataset"].(string)
	symbol, _ := args["symbol"].(string)
	if dataset == "" || symbol == "" {
		return nil, "", fmt.Errorf("tool call missing dataset or symbol")
	}

	sym, err := normalizeToolSymbol(symbol)
	if err != nil {
		return nil, "", err
	}

	result, err := data.Fetch(dataset, sym)
	if err != nil {
		return nil, "", err
	}
	return map[string]any{"data": result}, dataset + ":" + sym, nil
}

func normalizeToolSymbol(symbol string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" || len(sym) > 8 {
		return "", fmt.Errorf("invalid symbol %q", symbol)
	}
	return sym, nil
}
