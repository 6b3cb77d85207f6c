package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"marketplace-chatbot-server/internal/model"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, time.Minute)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestTokenBlacklist(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if c.IsTokenBlacklisted(ctx, "abc") {
		t.Fatal("unexpected blacklisted token")
	}
	if err := c.BlacklistToken(ctx, "abc", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	if !c.IsTokenBlacklisted(ctx, "abc") {
		t.Fatal("token should be blacklisted")
	}

	mr.FastForward(2 * time.Hour)
	if c.IsTokenBlacklisted(ctx, "abc") {
		t.Fatal("blacklist entry should expire with the token")
	}

	if err := c.BlacklistToken(ctx, "expired", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("blacklist expired: %v", err)
	}
	if c.IsTokenBlacklisted(ctx, "expired") {
		t.Fatal("expired token should not be stored")
	}
}

func TestPreferredRoleCache(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	role, err := c.GetPreferredRole(ctx, 5)
	if err != nil || role != "" {
		t.Fatalf("miss = %q, %v; want empty", role, err)
	}

	if err := c.SetPreferredRole(ctx, 5, model.RoleVendor); err != nil {
		t.Fatalf("set: %v", err)
	}
	role, err = c.GetPreferredRole(ctx, 5)
	if err != nil || role != model.RoleVendor {
		t.Fatalf("hit = %q, %v; want vendor", role, err)
	}

	mr.Set("chatbot:user:5:role", "admin")
	role, err = c.GetPreferredRole(ctx, 5)
	if err != nil || role != "" {
		t.Fatalf("garbage value = %q, %v; want empty", role, err)
	}

	if err := c.DeletePreferredRole(ctx, 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("chatbot:user:5:role") {
		t.Fatal("key should be deleted")
	}
}

func TestPublishMessageProcessed(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	sub := c.SubscribeMessageProcessed(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	event := &MessageProcessedEvent{UserID: 3, Role: "customer", Message: "hi", Response: "hello", Timestamp: time.Now()}
	if err := c.PublishMessageProcessed(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got MessageProcessedEvent
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.UserID != 3 || got.Response != "hello" {
			t.Fatalf("event = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}
