package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/antoto2021/nexus/internal/agent"
	"github.com/antoto2021/nexus/internal/cache"
	"github.com/antoto2021/nexus/internal/gemini"
	"github.com/antoto2021/nexus/internal/google"
	"github.com/antoto2021/nexus/internal/keys"
	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/provider"
	"github.com/antoto2021/nexus/internal/router"
	"github.com/antoto2021/nexus/internal/store"
	"github.com/antoto2021/nexus/internal/version"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/exp/ordered"
)

// app holds what the commands share.
type app struct {
	cfg    *Config
	logger *log.Logger
	keys   *keys.Store
	db     *store.DB
	convos *cache.Conversations
	temp   *cache.ExpiringCache[string]
}

func newLogger(cfg *Config) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.WarnLevel
	}
	if cfg.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "nexus",
		Level:  level,
	})
}

func openApp(cfg *Config) (*app, error) {
	db, err := store.Open(filepath.Join(cfg.CachePath, "nexus.db"))
	if err != nil {
		return nil, nexusError{err, "Could not open database."}
	}
	convos, err := cache.NewConversations(cfg.CachePath)
	if err != nil {
		_ = db.Close()
		return nil, nexusError{err, "Could not open conversation cache."}
	}
	temp, err := cache.NewExpiring[string](cfg.CachePath)
	if err != nil {
		_ = db.Close()
		return nil, nexusError{err, "Could not open cache."}
	}
	return &app{
		cfg:    cfg,
		logger: newLogger(cfg),
		keys:   keys.New(),
		db:     db,
		convos: convos,
		temp:   temp,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close() //nolint:wrapcheck
}

// newClient builds the Gemini client for key using the configured transport.
func (a *app) newClient(ctx context.Context, key string) (provider.Client, error) {
	httpClient := &http.Client{Timeout: a.cfg.Timeout}
	switch a.cfg.Transport {
	case transportSDK:
		client, err := gemini.New(ctx, gemini.Config{
			APIKey:         key,
			BaseURL:        a.cfg.BaseURL,
			HTTPClient:       httpClient,
			ThinkingBudget:   a.cfg.ThinkingBudget,
			DisableStreaming: !a.cfg.Streaming,
		})
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		return client, nil
	default:
		gcfg := google.DefaultConfig(key)
		if a.cfg.BaseURL != "" {
			gcfg.BaseURL = a.cfg.BaseURL
		}
		gcfg.HTTPClient = httpClient
		gcfg.ThinkingBudget = a.cfg.ThinkingBudget
		gcfg.DisableStreaming = !a.cfg.Streaming
		return google.New(gcfg), nil
	}
}

// router builds a router for the stored key.
func (a *app) router(ctx context.Context) (*router.Router, error) {
	key, source, err := a.keys.Get()
	if err != nil {
		return nil, explain(err)
	}
	a.logger.Debug("using API key", "source", source, "key", keys.Mask(key))
	client, err := a.newClient(ctx, key)
	if err != nil {
		return nil, nexusError{err, "Could not create the Gemini client."}
	}
	return router.New(client, a.cfg.FallbackModels, a.logger), nil
}

// chain returns the models to try: the configured model or preferred, then
// what the last scan found, then the fallbacks.
func (a *app) chain(ctx context.Context, r *router.Router, preferred string) ([]string, store.State, error) {
	state, err := a.db.State(ctx)
	if err != nil {
		return nil, state, nexusError{err, "Could not read state."}
	}
	first := ordered.First(a.cfg.Model, preferred, state.ActiveModel)
	validated := append([]string{state.ActiveModel}, state.ValidatedModels...)
	return r.Chain(first, validated), state, nil
}

func (a *app) agentConfig() agent.Config {
	var request proto.Request
	if a.cfg.MaxTokens > 0 {
		request.MaxTokens = &a.cfg.MaxTokens
	}
	if a.cfg.Temperature >= 0 {
		request.Temperature = &a.cfg.Temperature
	}
	if a.cfg.TopP >= 0 {
		request.TopP = &a.cfg.TopP
	}
	if a.cfg.TopK >= 0 {
		request.TopK = &a.cfg.TopK
	}
	return agent.Config{
		SystemPrompt:  a.cfg.SystemPrompt,
		Grounding:     a.cfg.Grounding,
		MaxInputChars: a.cfg.MaxInputChars,
		Request:       request,
	}
}

func (a *app) versionChecker() *version.Checker {
	return version.New(version.Config{
		Owner:   a.cfg.GitHub.Owner,
		Repo:    a.cfg.GitHub.Repo,
		Branch:  a.cfg.GitHub.Branch,
		Timeout: a.cfg.Timeout,
		TTL:     a.cfg.UpdateCheckTTL,
	}, a.temp, a.logger)
}

// loadConversation reads the history of id. A missing history is empty.
func (a *app) loadConversation(id string) (proto.Conversation, error) {
	var history proto.Conversation
	if err := a.convos.Read(id, &history); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nexusError{err, "Could not read the conversation."}
	}
	return history, nil
}
