// Command client is a terminal client for a Wealth Forge Network
// server. It signs in through the session manager, keeps one live
// conversation in sync, and snapshots the identity and project list to
// a local fallback store.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/client"
	"github.com/wealthforge/network/internal/conversation"
	"github.com/wealthforge/network/internal/localstore"
	"github.com/wealthforge/network/internal/session"
)

const (
	identityKey = "wealthforge_user"
	projectsKey = "wealthforge_projects"
)

type consoleNotifier struct{}

func (consoleNotifier) Notify(message string) {
	fmt.Fprintln(os.Stderr, "! "+message)
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "server base URL")
	statePath := flag.String("state", defaultStatePath(), "local fallback store path")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	store, err := localstore.Open(*statePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open local store:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(*serverURL)
	notifier := consoleNotifier{}
	manager := session.NewManager(api, api, notifier)
	syncer := conversation.NewSyncer(api, api, notifier)
	defer syncer.Close()

	go manager.Run(ctx)

	// Keep the conversation identity and the fallback snapshot in step
	// with the session.
	updates, cancelUpdates := manager.Subscribe()
	defer cancelUpdates()
	go func() {
		for snap := range updates {
			switch snap.State {
			case session.StateAuthenticated:
				syncer.SetSelf(snap.Identity.ID)
				if err := store.SetJSON(identityKey, snap.Identity); err != nil {
					slog.Warn("persist identity snapshot", "error", err)
				}
			case session.StateUnauthenticated:
				syncer.SetSelf(uuid.Nil)
			}
		}
	}()

	// Show the last known identity while the first session check runs.
	var lastIdentity session.Identity
	if ok, err := store.GetJSON(identityKey, &lastIdentity); err == nil && ok {
		fmt.Printf("last signed in as %s (%s)\n", lastIdentity.DisplayName, lastIdentity.Initials)
	}

	repl(ctx, api, manager, syncer, store)
}

func repl(ctx context.Context, api *client.Client, manager *session.Manager, syncer *conversation.Syncer, store *localstore.Store) {
	fmt.Println("commands: login <email> <password> | register <email> <name> <password> | whoami |")
	fmt.Println("          peer <id> | send <text> | history | contacts | projects [category] | logout | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "quit", "exit":
			return

		case "login":
			if len(args) != 2 {
				fmt.Println("usage: login <email> <password>")
				continue
			}
			if err := manager.Login(ctx, args[0], args[1]); err == nil {
				fmt.Println("signed in")
			}

		case "register":
			if len(args) < 3 {
				fmt.Println("usage: register <email> <name> <password>")
				continue
			}
			name := strings.Join(args[1:len(args)-1], " ")
			if err := manager.SignUp(ctx, args[0], name, args[len(args)-1]); err == nil {
				fmt.Println("registered, now login")
			}

		case "logout":
			if err := manager.Logout(ctx); err == nil {
				fmt.Println("signed out")
			}

		case "whoami":
			snap := manager.Current()
			if snap.Loading {
				fmt.Println("(resolving...)")
				continue
			}
			if snap.Identity == nil {
				fmt.Println("not signed in")
				continue
			}
			id := snap.Identity
			fmt.Printf("%s [%s] <%s> admin=%v\n", id.DisplayName, id.Initials, id.Email, id.IsAdmin)

		case "peer":
			if len(args) != 1 {
				fmt.Println("usage: peer <profile-id>")
				continue
			}
			peerID, err := uuid.Parse(args[0])
			if err != nil {
				fmt.Println("invalid id:", err)
				continue
			}
			if err := syncer.SetPeer(ctx, peerID); err != nil {
				continue
			}
			fmt.Println("conversation switched")

		case "send":
			if err := syncer.Send(ctx, strings.Join(args, " ")); err == nil {
				fmt.Println("sent")
			}

		case "history":
			messages, err := syncer.History(ctx)
			if err != nil {
				continue
			}
			for _, m := range messages {
				marker := " "
				if m.Read {
					marker = "*"
				}
				fmt.Printf("%s [%s] %s: %s\n", marker, m.CreatedAt.Format("15:04:05"), shortID(m.SenderID), m.Content)
			}

		case "contacts":
			contacts, err := api.Contacts(ctx)
			if err != nil {
				fmt.Println("contacts:", err)
				continue
			}
			for _, c := range contacts {
				fmt.Printf("%s (%s) unread=%d last=%q\n", c.DisplayName, c.PeerID, c.UnreadCount, c.LastMessage)
			}

		case "projects":
			category := ""
			if len(args) > 0 {
				category = args[0]
			}
			projects, err := api.BrowseProjects(ctx, category, "")
			if err != nil {
				// Offline fallback: show the last snapshot.
				var cached []client.Project
				if ok, cacheErr := store.GetJSON(projectsKey, &cached); cacheErr == nil && ok {
					fmt.Println("(offline, showing last snapshot)")
					printProjects(cached)
					continue
				}
				fmt.Println("projects:", err)
				continue
			}
			if err := store.SetJSON(projectsKey, projects); err != nil {
				slog.Warn("persist project snapshot", "error", err)
			}
			printProjects(projects)

		default:
			fmt.Println("unknown command:", cmd)
		}
	}
}

func printProjects(projects []client.Project) {
	for _, p := range projects {
		fmt.Printf("%s  %s (%s) by %s", p.ID, p.Title, p.Category, p.CreatorName)
		if len(p.RequiredSkills) > 0 {
			fmt.Printf(" skills=%s", strings.Join(p.RequiredSkills, ","))
		}
		fmt.Println()
	}
}

func shortID(id uuid.UUID) string {
	s := id.String()
	return s[:8]
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wealthforge-client.json"
	}
	return filepath.Join(home, ".wealthforge", "client.json")
}
