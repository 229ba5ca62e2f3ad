package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/minidxo/internal/adapters/terminal"
	"github.com/PabloGalante/minidxo/internal/app/conversation"
	"github.com/PabloGalante/minidxo/internal/domain"
	"github.com/PabloGalante/minidxo/internal/observability"
)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("user", "local", "user id for the session")
	chatCmd.Flags().Bool("no-panel", false, "disable the consensus panel for this session")
	chatCmd.Flags().Int("width", 100, "wrap width for replies, 0 disables wrapping")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive triage session in the terminal",
	Long: `Start an interactive triage session. Type your symptoms and press enter.
Commands: /history prints the transcript, /quit exits.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		observability.InitWithWriter(os.Stderr, "warn")

		rt, err := buildRuntime(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		user, _ := cmd.Flags().GetString("user")
		noPanel, _ := cmd.Flags().GetBool("no-panel")
		width, _ := cmd.Flags().GetInt("width")

		in := conversation.StartSessionInput{UserID: domain.UserID(user), Title: "terminal"}
		if noPanel {
			off := false
			in.Panel = &off
		}

		return runChat(cmd.Context(), rt.service, in, terminal.NewRenderer(width), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runChat(
	ctx context.Context,
	svc *conversation.Service,
	in conversation.StartSessionInput,
	r *terminal.Renderer,
	stdin io.Reader,
	stdout io.Writer,
) error {
	started, err := svc.StartSession(ctx, in)
	if err != nil {
		return err
	}
	session := started.Session
	fmt.Fprintln(stdout, r.Greeting(started.Greeting))

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			_, msgs, err := svc.GetSessionTimeline(ctx, session.ID, 0)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, r.Transcript(msgs))
			continue
		}

		out, err := svc.SendMessage(ctx, conversation.SendMessageInput{
			SessionID: session.ID,
			UserID:    session.UserID,
			Text:      line,
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(stdout, r.Message(out.AgentMessage))
		if out.Failure == nil {
			fmt.Fprintln(stdout, r.Hint(fmt.Sprintf("lookups: %d, evidence: %s", out.Lookups, out.Provenance)))
		}
	}
	return scanner.Err()
}
