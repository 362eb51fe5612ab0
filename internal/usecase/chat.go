package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"storefront-agent/internal/catalog"
	"storefront-agent/internal/domain"
	"storefront-agent/internal/session"
)

const (
	defaultFallbackTimeout = 10 * time.Second

	greetingMorning   = "Good morning! How can I help you today?"
	greetingAfternoon = "Good afternoon! What are you looking for today?"
	greetingEvening   = "Good evening! Need help finding the right product?"

	replyEmptyCart         = "Your cart is empty."
	replyCartHeader        = "Your cart contains:"
	replyProductNotFound   = "Sorry, I couldn't find that product to add."
	replyNoCartItems       = "You have no items in your cart yet. How about exploring some trending products?"
	replyNoRecommendations = "We couldn't find any personalized recommendations right now."
	replyFallbackFailure   = "Sorry, I'm having trouble answering right now. Please try again in a moment."
	replyModerationRefusal = "Sorry, I can't help with that. Is there a product I can help you find?"
)

// LLMClient is the generative-fallback collaborator. Chat receives the
// prior conversation plus the new user message and returns the
// assistant reply.
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
	Moderate(ctx context.Context, input string) (bool, error)
}

type ParamGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ChatService routes a raw user message to exactly one handler:
// greeting, recommendation, cart command, keyword product lookup, or
// the generative fallback. Every failure path degrades to a textual
// reply; Chat never propagates an error for any message.
type ChatService struct {
	catalog         *catalog.Catalog
	sessions        *session.Store
	llm             LLMClient
	params          ParamGetter
	paramPrefix     string
	fallbackTimeout time.Duration
	logger          *slog.Logger

	// Wall clock, overridable in tests for greeting boundaries.
	now func() time.Time

	cacheMu      sync.RWMutex
	cacheLoaded  bool
	model        string
	systemPrompt string
}

type ChatInput struct {
	Message string
	UserID  string
}

type ChatOutput struct {
	Reply string
}

func NewChatService(cat *catalog.Catalog, sessions *session.Store, llm LLMClient, params ParamGetter, paramPrefix string, fallbackTimeout time.Duration, logger *slog.Logger) (*ChatService, error) {
	if cat == nil {
		return nil, errors.New("usecase: catalog must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if params == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if fallbackTimeout <= 0 {
		fallbackTimeout = defaultFallbackTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		catalog:         cat,
		sessions:        sessions,
		llm:             llm,
		params:          params,
		paramPrefix:     paramPrefix,
		fallbackTimeout: fallbackTimeout,
		logger:          logger.With("component", "chat"),
		now:             time.Now,
	}, nil
}

// Chat runs the routing chain. Stages are tried in fixed priority
// order; each returns (reply, ok) and the first ok reply wins. A stage
// reporting ok=false is a first-class "no match", so the deliberate
// fallthrough from an unmatched cart command to keyword lookup stays
// explicit. The generative fallback is total and terminates the chain.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	stages := []func(ctx context.Context, in ChatInput) (string, bool){
		s.greet,
		s.recommend,
		s.cartCommand,
		s.keywordLookup,
		s.generativeFallback,
	}
	for _, stage := range stages {
		if reply, ok := stage(ctx, in); ok {
			return ChatOutput{Reply: reply}, nil
		}
	}
	// Unreachable: generativeFallback always matches.
	return ChatOutput{Reply: replyFallbackFailure}, nil
}

// greet answers messages that are exactly "hi" or "hello" with a
// greeting picked by wall-clock hour. Hour 12 is afternoon, hour 18 is
// evening.
func (s *ChatService) greet(_ context.Context, in ChatInput) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(in.Message)) {
	case "hi", "hello":
	default:
		return "", false
	}
	hour := s.now().Hour()
	switch {
	case hour < 12:
		return greetingMorning, true
	case hour < 18:
		return greetingAfternoon, true
	default:
		return greetingEvening, true
	}
}

// recommend handles messages mentioning "recommend" or "suggest".
// For every cart item it collects the same-category, different-name
// products from the whole catalog. Duplicates across cart items are
// intentionally kept in the output.
func (s *ChatService) recommend(_ context.Context, in ChatInput) (string, bool) {
	lower := strings.ToLower(in.Message)
	if !strings.Contains(lower, "recommend") && !strings.Contains(lower, "suggest") {
		return "", false
	}

	items := s.sessions.CartItems(in.UserID)
	if len(items) == 0 {
		return replyNoCartItems, true
	}

	var names []string
	for _, item := range items {
		for _, p := range s.catalog.SameCategory(item) {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return replyNoRecommendations, true
	}
	return "Here are some products you might like: " + strings.Join(names, ", "), true
}

// cartCommand handles "show cart"/"view cart", "add", and "remove".
// An add/remove whose message matches no product keyword is a
// non-match and falls through to keyword lookup.
func (s *ChatService) cartCommand(_ context.Context, in ChatInput) (string, bool) {
	msg := catalog.Normalize(in.Message)

	if strings.Contains(msg, "show cart") || strings.Contains(msg, "view cart") {
		return s.listCart(in.UserID), true
	}
	if strings.Contains(msg, "add") {
		if target, ok := firstProduct(s.catalog.MatchKeywords(msg)); ok {
			return s.addToCart(in.UserID, target.Name), true
		}
	}
	if strings.Contains(msg, "remove") {
		if target, ok := firstProduct(s.catalog.MatchKeywords(msg)); ok {
			return s.removeFromCart(in.UserID, target.Name), true
		}
	}
	return "", false
}

// addToCart resolves the query to a catalog product by name
// containment (query-contains-name) and appends it to the cart.
func (s *ChatService) addToCart(userID, productQuery string) string {
	p, ok := s.catalog.FindByName(productQuery)
	if !ok {
		return replyProductNotFound
	}
	s.sessions.AddToCart(userID, p)
	return fmt.Sprintf("Added %s to your cart.", p.Name)
}

// removeFromCart drops exactly one occurrence of the first cart item
// whose name is contained in the query.
func (s *ChatService) removeFromCart(userID, productQuery string) string {
	normQuery := catalog.Normalize(productQuery)
	removed, ok := s.sessions.RemoveFromCart(userID, func(item domain.Product) bool {
		return strings.Contains(normQuery, catalog.Normalize(item.Name))
	})
	if !ok {
		return fmt.Sprintf("%s is not in your cart.", productQuery)
	}
	return fmt.Sprintf("Removed %s from your cart.", removed.Name)
}

// listCart enumerates the cart deduplicated by product name in
// first-seen order.
func (s *ChatService) listCart(userID string) string {
	items := s.sessions.UniqueCartItems(userID)
	if len(items) == 0 {
		return replyEmptyCart
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, replyCartHeader)
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s - %s", item.Name, item.DisplayPrice()))
	}
	return strings.Join(lines, "\n")
}

// keywordLookup surfaces the first catalog product, in load order,
// with a keyword contained in the normalized message.
func (s *ChatService) keywordLookup(_ context.Context, in ChatInput) (string, bool) {
	matched := s.catalog.MatchKeywords(catalog.Normalize(in.Message))
	p, ok := firstProduct(matched)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s - %s. Price: %s", p.Name, p.Description, p.DisplayPrice()), true
}

// generativeFallback delegates to the LLM with the user's bounded
// conversation history and replaces the stored history with the new
// state. It always matches; any failure degrades to a generic reply.
// No session lock is held across the LLM call.
func (s *ChatService) generativeFallback(ctx context.Context, in ChatInput) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.fallbackTimeout)
	defer cancel()

	if err := s.ensureConfig(ctx); err != nil {
		s.logger.Error("fallback config load failed", "error", newError(ErrorUpstream, "ssm_load_error", err))
		return replyFallbackFailure, true
	}

	flagged, err := s.llm.Moderate(ctx, in.Message)
	if err != nil {
		// Moderation outages must not block the fallback.
		s.logger.Warn("moderation check failed, continuing", "error", err)
	} else if flagged {
		return replyModerationRefusal, true
	}

	history := s.sessions.History(in.UserID)
	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: "system", Content: s.systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: "user", Content: in.Message})

	reply, err := s.llm.Chat(ctx, s.model, messages)
	if err != nil {
		s.logger.Error("fallback generation failed", "error", newError(ErrorUpstream, "llm_error", err), "user_id", in.UserID)
		return replyFallbackFailure, true
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = replyFallbackFailure
	}

	s.sessions.SetHistory(in.UserID, append(history,
		domain.ChatMessage{Role: "user", Content: in.Message},
		domain.ChatMessage{Role: "assistant", Content: reply},
	))
	return reply, true
}

// ensureConfig lazily loads the model name and persona prompt from the
// parameter store and caches them for the process lifetime. A failed
// load is retried on the next fallback call.
func (s *ChatService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	model, err := s.params.GetParameter(ctx, s.paramPrefix+"/config/openai_model")
	if err != nil {
		return fmt.Errorf("usecase: load model name: %w", err)
	}
	systemPrompt, err := s.params.GetParameter(ctx, s.paramPrefix+"/system_prompt")
	if err != nil {
		return fmt.Errorf("usecase: load system prompt: %w", err)
	}

	s.model = model
	s.systemPrompt = systemPrompt
	s.cacheLoaded = true
	return nil
}

func firstProduct(products []domain.Product) (domain.Product, bool) {
	if len(products) == 0 {
		return domain.Product{}, false
	}
	return products[0], true
}
