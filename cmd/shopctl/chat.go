package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	chatSession string
	chatMessage string
	chatVerbose bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the shopping assistant",
	Long:  "Send one message with --message, or start an interactive session reading lines from stdin.",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session id (random when empty)")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "single message to send")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "print function calls made by the assistant")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if chatSession == "" {
		chatSession = uuid.NewString()
	}
	out := cmd.OutOrStdout()

	send := func(msg string) error {
		reply, err := client.Chat(cmd.Context(), chatSession, msg)
		if err != nil {
			return err
		}
		if chatVerbose {
			for _, tr := range reply.ToolResults {
				status := "ok"
				if !tr.Result.Success {
					status = tr.Result.Code
				}
				fmt.Fprintf(out, "  -> %s %s [%s]\n", tr.Name, tr.Arguments, status)
			}
		}
		fmt.Fprintln(out, reply.Message)
		return nil
	}

	if chatMessage != "" {
		return send(chatMessage)
	}

	fmt.Fprintf(out, "session %s (Ctrl-D to quit)\n", chatSession)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := send(line); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		}
	}
}
