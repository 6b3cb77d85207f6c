package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"marketplace-chatbot-server/internal/config"
	"marketplace-chatbot-server/internal/model"
)

type pipeline struct {
	svc   *ChatbotService
	repo  *memoryRepo
	mp    *fakeMarketplace
	chat  *fakeCompleter
	pub   *fakePublisher
	clock *testClock
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	repo := &memoryRepo{}
	clock := newTestClock()
	mp := &fakeMarketplace{
		accounts: map[int64]*model.Account{2: {ID: 2, DisplayName: "Carl"}},
		search:   []model.Product{{ID: 3, Name: "Blue Shirt", Price: "19.99"}},
		order: &model.Order{
			ID: 12, CustomerID: 2, Status: "shipped", Total: "10.00",
			Items: []model.OrderItem{{Name: "Sock", Quantity: 1, VendorID: 9}},
		},
	}
	registry := NewIntentRegistry(NewSearchProductAction(mp), NewCheckOrderAction(mp))
	chat := &fakeCompleter{reply: "Hello Carl!"}
	pub := &fakePublisher{}

	history := NewHistoryService(repo).WithClock(clock.Now)
	contexts := NewContextBuilder(mp, mp, mp)
	cfg := config.ChatbotConfig{Enabled: true, VendorAccess: true, CustomerAccess: true, MaxMessagesPerSession: 50, HistoryTurns: 5}

	svc := NewChatbotService(cfg, history, contexts, NewPromptTemplates("Dokan"),
		NewIntentDetector(nil, registry), registry, chat, pub)
	svc.now = clock.Now

	return &pipeline{svc: svc, repo: repo, mp: mp, chat: chat, pub: pub, clock: clock}
}

func customerRequest(message string, params map[string]any) ChatRequest {
	return ChatRequest{UserID: 2, Role: "customer", Message: message, Params: params}
}

func TestProcessRejectsInvalidInput(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  ChatRequest
		want error
	}{
		{"empty", customerRequest("   ", nil), ErrEmptyMessage},
		{"too long", customerRequest(strings.Repeat("a", 1001), nil), ErrMessageTooLong},
		{"bad user", ChatRequest{UserID: 0, Role: "customer", Message: "hi"}, ErrInvalidUser},
		{"bad role", ChatRequest{UserID: 2, Role: "admin", Message: "hi"}, ErrInvalidRole},
		{"spam", customerRequest("Win FREE money today", nil), ErrSpamMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.svc.Process(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if ErrorCode(err) != CodeInvalidMessage {
				t.Fatalf("ErrorCode = %q", ErrorCode(err))
			}
		})
	}

	if len(p.repo.rows) != 0 || p.chat.calls != 0 {
		t.Fatalf("rejected messages must not be persisted or sent: rows=%d calls=%d", len(p.repo.rows), p.chat.calls)
	}
}

func TestProcessAcceptsExactlyMaxLength(t *testing.T) {
	p := newPipeline(t)
	if _, err := p.svc.Process(context.Background(), customerRequest(strings.Repeat("é", 1000), nil)); err != nil {
		t.Fatalf("1000 characters should be accepted: %v", err)
	}
}

func TestRateLimitAtCap(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	history := NewHistoryService(p.repo).WithClock(p.clock.Now)
	for i := 0; i < 49; i++ {
		history.Save(ctx, 2, model.RoleCustomer, nil, "m", "r", nil)
	}
	if got := p.svc.RemainingMessages(ctx, 2); got != 1 {
		t.Fatalf("RemainingMessages = %d, want 1", got)
	}

	if _, err := p.svc.Process(ctx, customerRequest("hello", nil)); err != nil {
		t.Fatalf("50th message should pass: %v", err)
	}

	_, err := p.svc.Process(ctx, customerRequest("hello again", nil))
	if !errors.Is(err, ErrRateLimitExceeded) || ErrorCode(err) != CodeRateLimited {
		t.Fatalf("51st message err = %v", err)
	}
	if got := p.svc.RemainingMessages(ctx, 2); got != 0 {
		t.Fatalf("RemainingMessages = %d, want 0", got)
	}

	// 窗口滑过之后恢复
	p.clock.Advance(61 * time.Minute)
	if !p.svc.CheckRateLimit(ctx, 2) {
		t.Fatal("limit should reset after the window passes")
	}
}

func TestActionableIntentRequiresFollowup(t *testing.T) {
	p := newPipeline(t)

	res, err := p.svc.Process(context.Background(), customerRequest("search for products blue shirt", nil))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.RequiresFollowup {
		t.Fatal("expected requires_followup")
	}
	if res.Intent == nil || res.Intent.Type != model.IntentSearchProduct || res.Intent.Param(ParamQuery) != "blue shirt" {
		t.Fatalf("intent = %+v", res.Intent)
	}
	if res.Prompt == "" || res.MessageID != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if p.chat.calls != 0 {
		t.Fatalf("completion engine called %d times", p.chat.calls)
	}
	if len(p.repo.rows) != 0 {
		t.Fatal("followup must not be persisted")
	}
}

func TestConfirmedIntentWithEngineDownUsesCatalog(t *testing.T) {
	p := newPipeline(t)
	p.chat.err = errors.New("connection refused")

	params := map[string]any{"intent_confirmed": true, "type": "search_product", "query": "blue shirt"}
	res, err := p.svc.Process(context.Background(), customerRequest("search for products blue shirt", params))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Response != "Here are some products I found:\nBlue Shirt (ID: 3) - 19.99\n" {
		t.Fatalf("Response = %q", res.Response)
	}
	if res.MessageID == nil || *res.MessageID != p.repo.rows[0].ID {
		t.Fatalf("fallback turn should be persisted, MessageID = %v", res.MessageID)
	}
	if p.mp.searched[0].Query != "blue shirt" {
		t.Fatalf("search = %+v", p.mp.searched[0])
	}
}

func TestEngineFailureWithoutActionIsAIError(t *testing.T) {
	p := newPipeline(t)
	p.chat.err = errors.New("timeout")

	_, err := p.svc.Process(context.Background(), customerRequest("hello", nil))
	if !errors.Is(err, ErrAIUnavailable) || ErrorCode(err) != CodeAIError {
		t.Fatalf("err = %v", err)
	}

	p.chat.err = nil
	p.chat.reply = "   "
	_, err = p.svc.Process(context.Background(), customerRequest("hello", nil))
	if !errors.Is(err, ErrEmptyAIResponse) || ErrorCode(err) != CodeAIError {
		t.Fatalf("err = %v", err)
	}

	if len(p.repo.rows) != 0 || len(p.pub.events) != 0 {
		t.Fatal("failed turns must not be persisted or published")
	}
}

func TestProcessSuccess(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	NewHistoryService(p.repo).WithClock(p.clock.Now).Save(ctx, 2, model.RoleCustomer, nil, "earlier", "answer", nil)
	p.clock.Advance(time.Minute)

	res, err := p.svc.Process(ctx, customerRequest("  hello  ", map[string]any{"include_reviews": true, "bogus": 1}))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Response != "Hello Carl!" || res.RequiresFollowup {
		t.Fatalf("result = %+v", res)
	}
	if res.Timestamp != "2024-05-01 12:01:00" {
		t.Fatalf("Timestamp = %q", res.Timestamp)
	}
	if res.MessageID == nil || *res.MessageID != 2 {
		t.Fatalf("MessageID = %v", res.MessageID)
	}
	if _, ok := res.QueryParams["bogus"]; ok || !res.QueryParams.Bool(ParamIncludeReviews) {
		t.Fatalf("QueryParams = %#v", res.QueryParams)
	}
	if res.Context == nil || res.Context.UserID != 2 {
		t.Fatalf("Context = %+v", res.Context)
	}

	prompt := p.chat.prompts[0]
	if !strings.HasPrefix(prompt, NewPromptTemplates("Dokan").RolePrompt(model.RoleCustomer)+"\n\n") {
		t.Fatal("prompt should start with the role prompt")
	}
	if !strings.Contains(prompt, "Recent Conversation:\nUser: earlier\nAI: answer") {
		t.Fatalf("history missing from prompt:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "\n\nUser: hello\nAI Assistant:") {
		t.Fatalf("prompt tail wrong:\n%s", prompt)
	}

	meta := p.chat.meta[0]
	if meta["chatbot_mode"] != true || meta["role"] != "customer" || meta["context"] != res.Context {
		t.Fatalf("metadata = %#v", meta)
	}

	last := p.repo.rows[len(p.repo.rows)-1]
	if last.Message != "hello" || last.Response != "Hello Carl!" || len(last.ContextData) == 0 {
		t.Fatalf("persisted row = %+v", last)
	}
	if len(p.pub.events) != 1 || p.pub.events[0].Response != "Hello Carl!" {
		t.Fatalf("events = %+v", p.pub.events)
	}
}

func TestPublishFailureDoesNotFailTurn(t *testing.T) {
	p := newPipeline(t)
	p.pub.err = errors.New("redis down")

	if _, err := p.svc.Process(context.Background(), customerRequest("hello", nil)); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestInsufficientReplyRunsAction(t *testing.T) {
	p := newPipeline(t)
	p.chat.reply = "Sorry, I don't know where that order is."

	params := map[string]any{"intent_confirmed": "1", "order_id": "12"}
	res, err := p.svc.Process(context.Background(), customerRequest("where is order 12", params))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasPrefix(res.Response, "Order #12 details:\nStatus: shipped") {
		t.Fatalf("Response = %q", res.Response)
	}

	// 没有可执行意图时保留 AI 回复
	p.chat.reply = "I am not sure what you mean."
	res, err = p.svc.Process(context.Background(), customerRequest("tell me a joke", nil))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Response != "I am not sure what you mean." {
		t.Fatalf("Response = %q", res.Response)
	}
}

func TestValidateMessage(t *testing.T) {
	p := newPipeline(t)
	tests := map[string]bool{
		"How do I return a mug?":        true,
		"":                              false,
		"Visit our CASINO":              false,
		"click here for a prize":        false,
		"limited time offer":            false,
		"is this a scam?":               false,
		"my spammer friend":             true,
		strings.Repeat("b", 1001):       false,
		"make money fast from home now": false,
	}
	for msg, want := range tests {
		if got := p.svc.ValidateMessage(msg); got != want {
			t.Errorf("ValidateMessage(%.30q) = %v, want %v", msg, got, want)
		}
	}
}

func TestSuggestions(t *testing.T) {
	p := newPipeline(t)

	if n := len(p.svc.Suggestions(model.RoleVendor, nil, QueryParams{})); n != 7 {
		t.Fatalf("vendor base suggestions = %d", n)
	}
	all := p.svc.Suggestions(model.RoleVendor, nil, QueryParams{ParamIncludeAnalytics: true, ParamIncludeSales: true})
	if len(all) != 13 || all[7] != "Show me my store analytics for the last 30 days" || all[12] != "Show me my revenue breakdown" {
		t.Fatalf("vendor suggestions = %v", all)
	}

	if n := len(p.svc.Suggestions(model.RoleCustomer, nil, QueryParams{})); n != 7 {
		t.Fatalf("customer base suggestions = %d", n)
	}
	vendorID := int64(9)
	store := p.svc.Suggestions(model.RoleCustomer, &vendorID, QueryParams{})
	if len(store) != 10 || store[9] != "Tell me about this store" {
		t.Fatalf("customer store suggestions = %v", store)
	}
}

func TestClearHistory(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	if err := p.svc.ClearHistory(ctx, 2); !errors.Is(err, ErrClearFailed) {
		t.Fatalf("clearing empty history err = %v", err)
	}

	p.svc.Process(ctx, customerRequest("hello", nil))
	if err := p.svc.ClearHistory(ctx, 2); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if msgs, total := p.svc.History(ctx, 2, 20, 0); total != 0 || len(msgs) != 0 {
		t.Fatalf("History after clear = %v, %d", msgs, total)
	}
}
