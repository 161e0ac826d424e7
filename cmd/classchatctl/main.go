package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/classchat/classchat/internal/api"
	"github.com/classchat/classchat/internal/chat"
	"github.com/classchat/classchat/internal/config"
	"github.com/classchat/classchat/internal/session"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	_ = godotenv.Load()

	profileName := session.Resolve(*profileFlag)
	if err := session.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	profile, err := config.LoadProfile(session.ProfileConfigPath(profileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	c, err := api.New(profile.ServerURL, profile.Token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "contacts":
		cmdContacts(ctx, c, *jsonFlag)
	case "history":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: classchatctl history <contact-id> [page [limit]]")
			os.Exit(1)
		}
		page, limit := parsePaging(args[2:], profile.PageLimit)
		cmdHistory(ctx, c, args[1], page, limit, *jsonFlag)
	case "send":
		if len(args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: classchatctl send <contact-id> <teacher|student> <text>")
			os.Exit(1)
		}
		cmdSend(ctx, c, args[1], args[2], args[3], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: classchatctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  contacts                              List contacts")
	fmt.Fprintln(os.Stderr, "  history <contact-id> [page [limit]]   Show conversation history")
	fmt.Fprintln(os.Stderr, "  send <contact-id> <role> <text>       Send a text message")
}

func parsePaging(args []string, defaultLimit int) (int, int) {
	page, limit := 1, defaultLimit
	if len(args) >= 1 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			page = n
		}
	}
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			limit = n
		}
	}
	return page, limit
}

func cmdContacts(ctx context.Context, c *api.Client, jsonOut bool) {
	contacts, err := c.Contacts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(contacts)
		return
	}
	if len(contacts) == 0 {
		fmt.Println("No contacts.")
		return
	}
	for _, contact := range contacts {
		fmt.Printf("%-26s %-8s %s\n", contact.ID, contact.Role, contact.DisplayName())
	}
}

func cmdHistory(ctx context.Context, c *api.Client, contactID string, page, limit int, jsonOut bool) {
	msgs, err := c.Conversation(ctx, contactID, page, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(msgs)
		return
	}
	for _, m := range msgs {
		line := fmt.Sprintf("%s  %-8s  %s", m.SentAt.Local().Format("2006-01-02 15:04"), m.SenderRole, m.Content)
		if m.Attachment != nil {
			line += fmt.Sprintf("  [%s]", m.Attachment.Name)
		}
		fmt.Println(line)
	}
}

func cmdSend(ctx context.Context, c *api.Client, contactID, role, text string, jsonOut bool) {
	r := chat.Role(role)
	if r != chat.RoleTeacher && r != chat.RoleStudent {
		fmt.Fprintf(os.Stderr, "error: role must be teacher or student, got %q\n", role)
		os.Exit(1)
	}
	msg, err := c.SendText(ctx, api.Outgoing{
		ReceiverID:   contactID,
		ReceiverRole: r,
		Content:      text,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(msg)
		return
	}
	fmt.Printf("Sent %s at %s\n", msg.ID, msg.SentAt.Local().Format("15:04:05"))
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
