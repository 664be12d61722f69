package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antoto2021/nexus/internal/agent"
	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/response"
	"github.com/antoto2021/nexus/internal/router"
	"github.com/antoto2021/nexus/internal/store"
	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message        string   `json:"message"`
	ConversationID string   `json:"conversation_id"`
	Files          []string `json:"files"`
}

type chatResponse struct {
	ConversationID string         `json:"conversation_id"`
	Model          string         `json:"model"`
	Reply          response.Reply `json:"reply"`
	Structured     bool           `json:"structured"`
	Sources        []proto.Source `json:"sources,omitempty"`
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	s.logger.Warn("request failed", "path", c.FullPath(), "err", err, "request_id", c.GetString(requestIDKey))
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.config.RequestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.fail(c, http.StatusBadRequest, agent.ErrEmptyPrompt)
		return
	}

	ctx, cancel := s.withTimeout(c)
	defer cancel()

	id := req.ConversationID
	if id == "" {
		id = store.NewID()
	}
	if len(id) != 40 || !store.IDPattern.MatchString(id) {
		s.fail(c, http.StatusBadRequest, errors.New("invalid conversation id"))
		return
	}
	defer s.lock(id)()

	var history proto.Conversation
	if err := s.deps.Conversations.Read(id, &history); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}

	r, err := s.router(ctx, "")
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	state, err := s.deps.DB.State(ctx)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	var chain []string
	if r != nil && state.ActiveModel != "" {
		chain = r.Chain(state.ActiveModel, state.ValidatedModels)
	}

	a, err := agent.New(r, chain, s.deps.Agent)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	a.Load(history)
	if len(req.Files) > 0 {
		files := make([]agent.File, 0, len(req.Files))
		for _, name := range req.Files {
			files = append(files, agent.File{Name: name})
		}
		a.AddFiles(files...)
	}

	result, sendErr := a.Send(ctx, req.Message)
	if len(a.History()) > len(history) {
		if err := s.save(id, a.History(), result.Model); err != nil {
			s.fail(c, http.StatusInternalServerError, err)
			return
		}
	}
	if sendErr != nil {
		status := http.StatusBadGateway
		if errors.Is(sendErr, agent.ErrNotConfigured) {
			status = http.StatusPreconditionFailed
		}
		s.fail(c, status, sendErr)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		ConversationID: id,
		Model:          result.Model,
		Reply:          result.Reply,
		Structured:     result.Reply.Structured,
		Sources:        result.Sources,
	})
}

func (s *Server) save(id string, history proto.Conversation, model string) error {
	if err := s.deps.Conversations.Write(id, &history); err != nil {
		return err //nolint:wrapcheck
	}
	title := proto.FirstLine(firstPrompt(history))
	if title == "" {
		title = "untitled"
	}
	return s.deps.DB.Save(id, title, model) //nolint:wrapcheck
}

func firstPrompt(history proto.Conversation) string {
	for _, msg := range history {
		if msg.Role == proto.RoleUser && msg.Content != "" {
			return msg.Content
		}
	}
	return ""
}

func (s *Server) handleModels(c *gin.Context) {
	state, err := s.deps.DB.State(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	_, _, keyErr := s.deps.Keys.Get()
	chain := []string{}
	if state.ActiveModel != "" {
		chain = router.New(nil, s.deps.Fallbacks, s.deps.Logger).Chain(state.ActiveModel, state.ValidatedModels)
	}
	c.JSON(http.StatusOK, gin.H{
		"connected": keyErr == nil && state.ActiveModel != "",
		"active":    state.ActiveModel,
		"validated": state.ValidatedModels,
		"chain":     chain,
	})
}

type scanRequest struct {
	APIKey   string `json:"api_key"`
	ProbeAll bool   `json:"probe_all"`
}

type probeResult struct {
	Model string `json:"model"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleScan(c *gin.Context) {
	var req scanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
	}
	key := strings.TrimSpace(req.APIKey)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.ScanTimeout)
	defer cancel()

	r, err := s.router(ctx, key)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if r == nil {
		s.fail(c, http.StatusPreconditionFailed, agent.ErrNotConfigured)
		return
	}

	probes := []probeResult{}
	result, err := r.Scan(ctx, router.ScanOptions{
		ProbeAll: req.ProbeAll,
		OnProbe: func(p router.Probe) {
			pr := probeResult{Model: p.Model, OK: p.OK()}
			if p.Err != nil {
				pr.Error = p.Err.Error()
			}
			probes = append(probes, pr)
		},
	})
	body := gin.H{
		"active":        result.Active,
		"validated":     result.Validated,
		"tested":        result.Tested,
		"candidates":    result.Candidates,
		"from_fallback": result.FromFallback,
		"probes":        probes,
	}
	if err != nil {
		body["error"] = err.Error()
		c.JSON(http.StatusBadGateway, body)
		return
	}

	state, err := s.deps.DB.State(ctx)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	state.ActiveModel = result.Active
	state.ValidatedModels = result.Validated
	if err := s.deps.DB.SaveState(ctx, state); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if key != "" {
		if err := s.deps.Keys.Set(key); err != nil {
			s.fail(c, http.StatusInternalServerError, err)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

type conversationJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toJSON(convo store.Conversation) conversationJSON {
	return conversationJSON{
		ID:        convo.ID,
		Title:     convo.Title,
		Model:     convo.Model,
		UpdatedAt: convo.UpdatedAt,
	}
}

type messageJSON struct {
	Role    string   `json:"role"`
	Content string   `json:"content,omitempty"`
	Files   []string `json:"files,omitempty"`
}

func (s *Server) handleListConversations(c *gin.Context) {
	convos, err := s.deps.DB.List()
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]conversationJSON, 0, len(convos))
	for _, convo := range convos {
		out = append(out, toJSON(convo))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) findConversation(c *gin.Context) (*store.Conversation, bool) {
	convo, err := s.deps.DB.Find(c.Param("id"))
	if errors.Is(err, store.ErrNoMatches) {
		s.fail(c, http.StatusNotFound, err)
		return nil, false
	}
	if errors.Is(err, store.ErrManyMatches) {
		s.fail(c, http.StatusConflict, err)
		return nil, false
	}
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return convo, true
}

func (s *Server) handleGetConversation(c *gin.Context) {
	convo, ok := s.findConversation(c)
	if !ok {
		return
	}
	var history proto.Conversation
	if err := s.deps.Conversations.Read(convo.ID, &history); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	messages := make([]messageJSON, 0, len(history))
	for _, msg := range history {
		messages = append(messages, messageJSON(msg))
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation": toJSON(*convo),
		"messages":     messages,
	})
}

func (s *Server) handleDeleteConversation(c *gin.Context) {
	convo, ok := s.findConversation(c)
	if !ok {
		return
	}
	defer s.lock(convo.ID)()
	if err := s.deps.Conversations.Delete(convo.ID); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if err := s.deps.DB.Delete(convo.ID); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleVersion(c *gin.Context) {
	if s.deps.Version == nil {
		s.fail(c, http.StatusNotFound, errors.New("update check disabled"))
		return
	}
	ctx, cancel := s.withTimeout(c)
	defer cancel()

	state, err := s.deps.DB.State(ctx)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	status, err := s.deps.Version.Check(ctx, state.LocalHash)
	if err != nil {
		s.fail(c, http.StatusBadGateway, err)
		return
	}
	state.LocalHash = status.Remote
	if err := s.deps.DB.SaveState(ctx, state); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"local":            status.Local,
		"remote":           status.Remote,
		"update_available": status.UpdateAvailable,
	})
}
