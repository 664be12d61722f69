package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antoto2021/nexus/internal/agent"
	"github.com/antoto2021/nexus/internal/proto"
	"github.com/antoto2021/nexus/internal/response"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// readPrompt joins the arguments and whatever is piped on stdin.
func readPrompt(args []string, stdin io.Reader) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if stdin == nil {
		return prompt, nil
	}
	bts, err := io.ReadAll(stdin)
	if err != nil {
		return "", nexusError{err, "Unable to read stdin."}
	}
	input := strings.TrimSpace(string(bts))
	switch {
	case input == "":
		return prompt, nil
	case prompt == "":
		return input, nil
	default:
		return prompt + "\n\n" + input, nil
	}
}

func ask(cmd *cobra.Command, args []string) error {
	var stdin io.Reader
	if !isInputTTY() {
		stdin = os.Stdin
	}
	prompt, err := readPrompt(args, stdin)
	if err != nil {
		return err
	}
	if prompt == "" {
		return cmd.Usage() //nolint:wrapcheck
	}

	a, err := openApp(&config)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	ctx := cmd.Context()
	dets, err := resolveConversation(a.db, &config)
	if err != nil {
		return err
	}
	var history proto.Conversation
	if dets.ReadID != "" {
		history, err = a.loadConversation(dets.ReadID)
		if err != nil {
			return err
		}
	}

	r, err := a.router(ctx)
	if err != nil {
		return err
	}
	chain, _, err := a.chain(ctx, r, dets.Model)
	if err != nil {
		return err
	}
	ag, err := agent.New(r, chain, a.agentConfig())
	if err != nil {
		return nexusError{err, "Invalid system prompt."}
	}
	ag.Load(history)

	files, err := agent.ReadFiles(config.Files)
	if err != nil {
		return nexusError{err, "Could not read the context files."}
	}
	ag.AddFiles(files...)

	result, err := send(ctx, ag, prompt)
	if err != nil {
		return explain(err)
	}

	if !config.NoCache {
		if err := saveConversation(a, dets, ag.History(), result.Model); err != nil {
			return err
		}
	}

	if config.Copy {
		if err := clipboard.WriteAll(response.Clean(result.Raw)); err != nil {
			return nexusError{err, "Could not copy the reply to the clipboard."}
		}
	}

	if !config.Quiet && isErrTTY() && !config.NoCache {
		fmt.Fprintf(
			os.Stderr,
			"\n  %s Conversation saved: %s %s\n\n",
			stderrStyles().Success,
			stderrStyles().SHA1.Render(dets.WriteID[:7]),
			stderrStyles().Comment.Render(firstLine(dets, prompt)),
		)
	}
	return nil
}

// send asks the agent and prints the reply. Streamed replies are printed as
// they come, unrendered.
func send(ctx context.Context, ag *agent.Agent, prompt string) (agent.Result, error) {
	if config.Stream {
		result, err := ag.Stream(ctx, prompt, func(c proto.Chunk) {
			fmt.Fprint(os.Stdout, c.Content)
		})
		fmt.Fprintln(os.Stdout)
		return result, err
	}

	result, err := withSpinner(ctx, "Generating...", config.Quiet, func(ctx context.Context, _ func(string)) (agent.Result, error) {
		return ag.Send(ctx, prompt)
	})
	if err != nil {
		return result, err
	}
	if config.Raw {
		fmt.Fprintln(os.Stdout, response.Clean(result.Raw))
	} else {
		fmt.Fprint(os.Stdout, renderReply(stdoutStyles(), result.Reply, result.Sources))
	}
	return result, nil
}

func saveConversation(a *app, dets convoDetails, history proto.Conversation, model string) error {
	if err := a.convos.Write(dets.WriteID, &history); err != nil {
		return nexusError{err, fmt.Sprintf(
			"There was a problem writing %s to the cache. Use %s / %s to disable it.",
			dets.WriteID,
			stderrStyles().InlineCode.Render("--no-cache"),
			stderrStyles().InlineCode.Render("NEXUS_NO_CACHE"),
		)}
	}
	if err := a.db.Save(dets.WriteID, firstLine(dets, proto.LastPrompt(history)), model); err != nil {
		_ = a.convos.Delete(dets.WriteID)
		return nexusError{err, "There was a problem writing the conversation to the database."}
	}
	return nil
}

// firstLine is the title of a conversation: the given title, or the first
// line of the prompt.
func firstLine(dets convoDetails, prompt string) string {
	if dets.Title != "" {
		return dets.Title
	}
	return proto.FirstLine(prompt)
}
