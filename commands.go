package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"chatcore/config"
	"chatcore/engine"
	"chatcore/model"
	"chatcore/tools"
)

var (
	labelUser      = color.New(color.FgGreen, color.Bold).SprintFunc()
	labelAssistant = color.New(color.FgCyan, color.Bold).SprintFunc()
	labelTool      = color.New(color.FgYellow).SprintFunc()
	labelError     = color.New(color.FgRed).SprintFunc()
	dim            = color.New(color.Faint).SprintFunc()
)

// withApp opens the app, runs fn and closes the app, reporting errors on
// stderr.
func withApp(stderr io.Writer, fn func(a *app) error) int {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "%s %v\n", labelError("error:"), err)
		return exitError
	}
	err = fn(a)
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		a.logger.Error("command failed", zap.Error(err))
		fmt.Fprintf(stderr, "%s %v\n", labelError("error:"), err)
		return exitError
	}
	return exitOK
}

func runChat(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	chatID := fs.String("id", "", "Continue an existing chat instead of starting a new one.")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	return withApp(stderr, func(a *app) error {
		ctx := context.Background()
		r := &chatRenderer{out: stdout}
		eng, err := a.engine(r.observe)
		if err != nil {
			return err
		}

		id := *chatID
		if id == "" {
			chat, err := a.store.CreateChat(ctx, "")
			if err != nil {
				return err
			}
			id = chat.ID
		} else if err := printHistory(ctx, a, id, stdout); err != nil {
			return err
		}
		fmt.Fprintln(stdout, dim("chat "+id))

		scanner := bufio.NewScanner(stdin)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for {
			fmt.Fprint(stdout, labelUser("> "))
			if !scanner.Scan() {
				fmt.Fprintln(stdout)
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())

			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/new":
				chat, err := a.store.CreateChat(ctx, "")
				if err != nil {
					return err
				}
				id = chat.ID
				fmt.Fprintln(stdout, dim("chat "+id))
				continue
			}

			turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
			err := eng.Submit(turnCtx, id, line)
			stop()
			switch {
			case errors.Is(err, context.Canceled):
				fmt.Fprintln(stdout, dim("\n(cancelled)"))
			case err != nil:
				fmt.Fprintf(stdout, "%s %v\n", labelError("error:"), err)
			}
		}
	})
}

// chatRenderer prints turn events as they arrive.
type chatRenderer struct {
	out      io.Writer
	streamed bool
}

func (r *chatRenderer) observe(ev engine.Event) {
	switch ev.Kind {
	case engine.EventDelta:
		if !r.streamed {
			fmt.Fprint(r.out, labelAssistant("assistant: "))
			r.streamed = true
		}
		fmt.Fprint(r.out, ev.Content)
	case engine.EventToolStarted:
		fmt.Fprintln(r.out, labelTool(fmt.Sprintf("[%s] %s", ev.ToolCall.FunctionName, ev.ToolCall.RawArguments)))
	case engine.EventToolFinished:
		if ev.Err != nil {
			fmt.Fprintln(r.out, labelTool(fmt.Sprintf("[%s] failed", ev.ToolCall.FunctionName)))
		}
	case engine.EventMessagePersisted:
		m := ev.Message
		if m.Role == model.RoleAssistant && !r.streamed && m.Content != "" {
			fmt.Fprintf(r.out, "%s%s\n", labelAssistant("assistant: "), m.Content)
		}
	case engine.EventTitleUpdated:
		fmt.Fprintln(r.out, dim("title: "+ev.Title))
	case engine.EventTurnFinished:
		if r.streamed {
			fmt.Fprintln(r.out)
		}
		r.streamed = false
	}
}

func printHistory(ctx context.Context, a *app, chatID string, w io.Writer) error {
	chat, err := a.store.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	messages, err := a.store.GetMessages(ctx, chatID)
	if err != nil {
		return err
	}

	if chat.Title != "" {
		fmt.Fprintln(w, dim("title: "+chat.Title))
	}
	for _, m := range messages {
		switch m.Role {
		case model.RoleUser:
			fmt.Fprintf(w, "%s%s\n", labelUser("> "), m.Content)
		case model.RoleAssistant:
			for _, call := range m.ToolCalls {
				fmt.Fprintln(w, labelTool(fmt.Sprintf("[%s] %s", call.FunctionName, call.RawArguments)))
			}
			if m.Content != "" {
				fmt.Fprintf(w, "%s%s\n", labelAssistant("assistant: "), m.Content)
			}
		}
	}
	return nil
}

func runChats(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("chats", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("n", 0, "Show at most n chats (0 = all).")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	return withApp(stderr, func(a *app) error {
		chats, err := a.store.ListChats(context.Background())
		if err != nil {
			return err
		}
		if *limit > 0 && len(chats) > *limit {
			chats = chats[:*limit]
		}
		for _, c := range chats {
			title := c.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(stdout, "%s  %-40s  %s\n", c.ID, title, dim(humanize.Time(c.LastAccessed)))
		}
		return nil
	})
}

func runDelete(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: chatcore delete ID")
		return exitUsage
	}
	return withApp(stderr, func(a *app) error {
		if err := a.store.DeleteChat(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted %s\n", args[0])
		return nil
	})
}

func runSearch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("n", 20, "Show at most n matches.")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(stderr, "usage: chatcore search [-n N] QUERY")
		return exitUsage
	}

	return withApp(stderr, func(a *app) error {
		matches, err := a.store.SearchMessages(context.Background(), query, *limit)
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Fprintf(stdout, "%s %s %s: %s\n",
				dim(m.ChatID), m.ChatTitle, m.Message.Role, strings.ReplaceAll(m.Preview, "\n", " "))
		}
		return nil
	})
}

func runModels(args []string, stdout, stderr io.Writer) int {
	return withApp(stderr, func(a *app) error {
		names := make([]string, 0, len(a.providers))
		for name := range a.providers {
			names = append(names, name)
		}
		sort.Strings(names)

		active := a.settings.String(config.KeyProvider)
		activeModel := a.settings.String(config.KeyModel)
		for _, name := range names {
			fmt.Fprintln(stdout, config.ProviderDisplayName(name))
			for _, m := range a.providers[name].ListModels() {
				marker := " "
				if name == active && m.ID == activeModel {
					marker = "*"
				}
				fmt.Fprintf(stdout, " %s %-45s %s\n", marker, m.ID, dim(m.DisplayName))
			}
		}
		return nil
	})
}

func runVerify(args []string, stdout, stderr io.Writer) int {
	return withApp(stderr, func(a *app) error {
		p, name, err := a.activeProvider()
		if err != nil {
			return err
		}

		key := config.ProviderTokenKey(name)
		flagKey := config.VerifiedKey(name)
		if key != "" {
			flagKey = config.VerifiedKey(key)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pingErr := p.Ping(ctx, a.settings.Secret(key))

		if err := a.settings.Set(flagKey, pingErr == nil); err != nil {
			return err
		}
		if pingErr != nil {
			return fmt.Errorf("%s credential rejected: %w", config.ProviderDisplayName(name), pingErr)
		}
		fmt.Fprintf(stdout, "%s credential verified\n", config.ProviderDisplayName(name))
		return nil
	})
}

func runSet(args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(stderr, "usage: chatcore set KEY VALUE")
		return exitUsage
	}
	key, value := args[0], args[1]

	return withApp(stderr, func(a *app) error {
		token := strings.HasSuffix(key, "-Token")
		if token || strings.HasPrefix(key, "Plugin-") {
			a.creds.Set(key, value)
			if err := a.creds.Save(a.cfg.DataDir()); err != nil {
				return err
			}
			// A new credential is unverified until checked again.
			if token {
				if err := a.settings.Set(config.VerifiedKey(key), false); err != nil {
					return err
				}
			}
			fmt.Fprintf(stdout, "%s stored in the credential store\n", key)
			return nil
		}
		if err := a.settings.SetFromString(key, value); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s = %v\n", key, value)
		return nil
	})
}

func runMCP(args []string, stderr io.Writer) int {
	return withApp(stderr, func(a *app) error {
		a.logger.Info("serving tools over MCP", zap.Int("tools", len(a.tools.Definitions())))
		return tools.ServeMCP(a.tools, Version)
	})
}
