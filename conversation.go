package main

import (
	"errors"

	"github.com/antoto2021/nexus/internal/store"
	"github.com/charmbracelet/x/exp/ordered"
)

// convoDetails tells which conversation a prompt continues and where the
// exchange is saved.
type convoDetails struct {
	ReadID  string
	WriteID string
	Title   string
	Model   string
}

func resolveConversation(db *store.DB, cfg *Config) (convoDetails, error) {
	continueLast := cfg.ContinueLast || (cfg.Continue != "" && cfg.Title == "")
	readID := cfg.Continue
	writeID := ordered.First(cfg.Title, cfg.Continue)
	title := cfg.Title
	var model string

	if readID != "" || continueLast {
		found, err := findReadID(db, readID)
		if err != nil {
			return convoDetails{}, nexusError{err, "Could not find the conversation."}
		}
		readID = found.ID
		model = found.Model
		if title == "" {
			title = found.Title
		}
	}

	// continuing without a new title updates the existing conversation
	if continueLast {
		writeID = readID
	}

	if writeID == "" {
		writeID = store.NewID()
	}

	if !store.IDPattern.MatchString(writeID) {
		convo, err := db.Find(writeID)
		if err != nil {
			// a new conversation with a title
			writeID = store.NewID()
		} else {
			writeID = convo.ID
		}
	}

	return convoDetails{
		ReadID:  readID,
		WriteID: writeID,
		Title:   title,
		Model:   model,
	}, nil
}

// findReadID finds the conversation in, or the latest one when in matches
// nothing.
func findReadID(db *store.DB, in string) (*store.Conversation, error) {
	if in != "" {
		convo, err := db.Find(in)
		if err == nil {
			return convo, nil
		}
		if !errors.Is(err, store.ErrNoMatches) {
			return nil, err //nolint:wrapcheck
		}
	}
	return db.FindHEAD() //nolint:wrapcheck
}
