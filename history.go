package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/response"
	"github.com/antoto2021/nexus/internal/store"
	timeago "github.com/caarlos0/timea.go"
	"github.com/spf13/cobra"
)

var deleteOlderThan time.Duration

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"ls"},
	Short:   "List saved conversations",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		a, err := openApp(&config)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		conversations, err := a.db.List()
		if err != nil {
			return nexusError{err, "Could not list saved conversations."}
		}
		if len(conversations) == 0 {
			if !config.Quiet {
				fmt.Fprintln(os.Stderr, "No conversations found.")
			}
			return nil
		}
		printList(conversations)
		return nil
	},
}

func printList(conversations []store.Conversation) {
	for _, conversation := range conversations {
		fmt.Println(formatConversation(stdoutStyles(), conversation, isOutputTTY()))
	}
}

// formatConversation renders one line of the history list. Pipes get the
// short id and title separated by a tab.
func formatConversation(s styles, conversation store.Conversation, tty bool) string {
	id := conversation.ID[:store.IDShort]
	if !tty {
		return id + "\t" + conversation.Title
	}
	return fmt.Sprintf(
		"%s %s %s %s",
		s.SHA1.Render(id),
		conversation.Title,
		s.Model.Render(conversation.Model),
		s.Timeago.Render("("+timeago.Of(conversation.UpdatedAt)+")"),
	)
}

var historyShowCmd = &cobra.Command{
	Use:   "show [ID or TITLE]",
	Short: "Show a saved conversation, the latest one by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		a, err := openApp(&config)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		var in string
		if len(args) == 1 {
			in = args[0]
		}
		convo, err := findConversation(a.db, in)
		if err != nil {
			return err
		}
		history, err := a.loadConversation(convo.ID)
		if err != nil {
			return err
		}
		if config.Raw || !isOutputTTY() {
			fmt.Print(history.String())
			return nil
		}
		printHistory(history)
		return nil
	},
}

func printHistory(history proto.Conversation) {
	s := stdoutStyles()
	for _, msg := range history {
		switch {
		case msg.Role == proto.RoleUser && msg.Content == "" && len(msg.Files) > 0:
			fmt.Println(s.Comment.Render(fmt.Sprintf("[Fichiers ajoutés: %s]", orList(msg.Files...))))
		case msg.Role == proto.RoleUser:
			fmt.Printf("%s %s\n", s.Quote.Render(">"), msg.Content)
		case msg.Role == proto.RoleAssistant:
			fmt.Print(renderReply(s, response.Parse(msg.Content), nil))
		}
		fmt.Println()
	}
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [ID or TITLE]...",
	Short: "Delete saved conversations",
	RunE: func(_ *cobra.Command, args []string) error {
		if len(args) == 0 && deleteOlderThan <= 0 {
			return newUserErrorf("pass a conversation or --older-than")
		}
		a, err := openApp(&config)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		var targets []store.Conversation
		for _, in := range args {
			convo, err := findConversation(a.db, in)
			if err != nil {
				return err
			}
			targets = append(targets, *convo)
		}
		if deleteOlderThan > 0 {
			older, err := a.db.ListOlderThan(deleteOlderThan)
			if err != nil {
				return nexusError{err, "Could not list conversations."}
			}
			targets = append(targets, older...)
		}

		for _, convo := range targets {
			if err := a.convos.Delete(convo.ID); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nexusError{err, "Couldn't delete conversation."}
			}
			if err := a.db.Delete(convo.ID); err != nil {
				return nexusError{err, "Couldn't delete conversation."}
			}
			if !config.Quiet {
				fmt.Fprintln(os.Stderr, "Conversation deleted:", convo.ID[:store.IDShort])
			}
		}
		return nil
	},
}

// findConversation finds in, or the latest conversation when in is empty.
func findConversation(db *store.DB, in string) (*store.Conversation, error) {
	var (
		convo *store.Conversation
		err   error
	)
	if in == "" {
		convo, err = db.FindHEAD()
	} else {
		convo, err = db.Find(in)
	}
	if err != nil {
		return nil, nexusError{err, "Could not find the conversation."}
	}
	return convo, nil
}

func init() {
	historyDeleteCmd.Flags().Var(newDurationFlag(0, &deleteOlderThan), "older-than", "Deletes conversations older than the given duration (10d, 1mo).")
	historyCmd.AddCommand(historyShowCmd, historyDeleteCmd)
}
