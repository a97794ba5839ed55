package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/djchat/backend/internal/models"
)

func TestCategories(t *testing.T) {
	env := setupTestEnv(t)
	_, adminToken := createTestUser(t, env.db, "admin@example.com", "admin", models.UserRoleAdmin)
	_, userToken := createTestUser(t, env.db, "user@example.com", "user", models.UserRoleUser)

	t.Run("listing is public and sorted by name", func(t *testing.T) {
		createTestCategory(t, env.db, "zeta")
		createTestCategory(t, env.db, "alpha")

		resp := performRequest(t, env.app, http.MethodGet, "/api/categories", nil, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)

		data := dataArray(t, body)
		if len(data) != 2 {
			t.Fatalf("expected 2 categories, got %d", len(data))
		}
		first := data[0].(map[string]any)
		if first["name"] != "alpha" {
			t.Fatalf("expected %q first, got %v", "alpha", first["name"])
		}
	})

	t.Run("only admins can create categories", func(t *testing.T) {
		payload := map[string]any{"name": "music"}

		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/categories", payload, authHeaders(userToken))
		assertStatus(t, resp, http.StatusForbidden)
		resp.Body.Close()

		resp = performJSONRequest(t, env.app, http.MethodPost, "/api/categories", payload, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusCreated)
		resp.Body.Close()

		var category models.Category
		if err := env.db.First(&category, "name = ?", "music").Error; err != nil {
			t.Fatalf("expected category persisted: %v", err)
		}
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/categories", map[string]any{"name": "music"}, authHeaders(adminToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusConflict)
		assertEnvelopeError(t, body, "category already exists")
	})
}

func TestChannels(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "owner@example.com", "owner", models.UserRoleUser)
	_, outsiderToken := createTestUser(t, env.db, "outsider@example.com", "outsider", models.UserRoleUser)
	category := createTestCategory(t, env.db, "general")
	server := createTestServer(t, env.db, "Chatty", owner, category)

	t.Run("members can create channels", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, fmt.Sprintf("/api/servers/%d/channels", server.ID), map[string]any{
			"name": "random",
		}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)

		data := dataObject(t, body)
		if data["name"] != "random" {
			t.Fatalf("expected channel name %q, got %v", "random", data["name"])
		}
	})

	t.Run("non-members cannot create channels", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, fmt.Sprintf("/api/servers/%d/channels", server.ID), map[string]any{
			"name": "sneaky",
		}, authHeaders(outsiderToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusForbidden)
		assertEnvelopeError(t, body, "must be a member to create channels")
	})

	t.Run("unknown server is reported as missing", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/servers/9999/channels", map[string]any{
			"name": "orphan",
		}, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertEnvelopeError(t, body, "server not found")
	})

	t.Run("listing returns the server's channels in id order", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, fmt.Sprintf("/api/servers/%d/channels", server.ID), nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)

		data := dataArray(t, body)
		if len(data) != 1 {
			t.Fatalf("expected 1 channel, got %d", len(data))
		}
	})
}

func TestChannelMessages(t *testing.T) {
	env := setupTestEnv(t)
	owner, ownerToken := createTestUser(t, env.db, "owner@example.com", "owner", models.UserRoleUser)
	_, outsiderToken := createTestUser(t, env.db, "outsider@example.com", "outsider", models.UserRoleUser)
	category := createTestCategory(t, env.db, "general")
	server := createTestServer(t, env.db, "Chatty", owner, category)
	channel := createTestChannel(t, env.db, server, owner, "general")

	for i := 1; i <= 5; i++ {
		message := &models.Message{
			ChannelID: channel.ID,
			SenderID:  owner.ID,
			Content:   fmt.Sprintf("message %d", i),
		}
		if err := env.db.Create(message).Error; err != nil {
			t.Fatalf("failed creating message: %v", err)
		}
	}

	messagesPath := fmt.Sprintf("/api/channels/%d/messages", channel.ID)

	t.Run("pages read oldest to newest within the newest page", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, messagesPath+"?limit=3", nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)

		data := dataArray(t, body)
		if len(data) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(data))
		}
		first := data[0].(map[string]any)
		last := data[2].(map[string]any)
		if first["content"] != "message 3" || last["content"] != "message 5" {
			t.Fatalf("expected messages 3..5, got %v .. %v", first["content"], last["content"])
		}

		sender := first["sender"].(map[string]any)
		if sender["username"] != "owner" {
			t.Fatalf("expected sender username, got %v", sender["username"])
		}

		pagination := body["pagination"].(map[string]any)
		if got := pagination["total"].(float64); got != 5 {
			t.Fatalf("expected total 5, got %v", got)
		}
		if got := pagination["totalPages"].(float64); got != 2 {
			t.Fatalf("expected 2 pages, got %v", got)
		}
	})

	t.Run("second page holds the oldest messages", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, messagesPath+"?limit=3&page=2", nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)

		data := dataArray(t, body)
		if len(data) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(data))
		}
		if got := data[0].(map[string]any)["content"]; got != "message 1" {
			t.Fatalf("expected oldest message first, got %v", got)
		}
	})

	t.Run("non-members cannot read history", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, messagesPath, nil, authHeaders(outsiderToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusForbidden)
		assertEnvelopeError(t, body, "must be a member to read messages")
	})

	t.Run("unknown channel is reported as missing", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/channels/9999/messages", nil, authHeaders(ownerToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertEnvelopeError(t, body, "channel not found")
	})
}
