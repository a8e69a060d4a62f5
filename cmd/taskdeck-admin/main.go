// ABOUTME: Local admin CLI for the taskdeck embedded store and identity service
// ABOUTME: Opens the database directly; session token is kept in a local file

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck/internal/analytics"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/export"
	"github.com/taskdeck/taskdeck/internal/identity"
	"github.com/taskdeck/taskdeck/internal/store"
)

const banner = `
 _            _       _           _
| |_ __ _ ___| | ____| | ___  ___| | __
| __/ _' / __| |/ / _' |/ _ \/ __| |/ /
| || (_| \__ \   < (_| |  __/ (__|   <
 \__\__,_|___/_|\_\__,_|\___|\___|_|\_\
`

// adminConfig is the optional TOML client config at
// ~/.config/taskdeck/admin.toml.
type adminConfig struct {
	DBPath     string `toml:"db_path"`
	SessionTTL string `toml:"session_ttl"`
}

// cliConfig merges the two config sources: the core YAML config (database
// path, session TTL, bcrypt cost, logging) and the TOML client file. The
// core config wins where both set the same knob.
type cliConfig struct {
	admin *adminConfig
	core  *config.Config
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadCLIConfig()
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.core != nil {
		slog.SetDefault(setupLogger(cfg.core.Logging))
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "register":
		err = cmdRegister(cfg, args)
	case "login":
		err = cmdLogin(cfg, args)
	case "logout":
		err = cmdLogout(cfg)
	case "guest":
		err = cmdGuest(cfg)
	case "me":
		err = cmdMe(cfg)
	case "task":
		err = cmdTask(cfg, args)
	case "project":
		err = cmdProject(cfg, args)
	case "summary":
		err = cmdSummary(cfg)
	case "export":
		err = cmdExport(cfg, args)
	case "import":
		err = cmdImport(cfg, args)
	case "sessions":
		err = cmdSessions(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: taskdeck-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  register <email> <name>   Create an account and log in")
	fmt.Println("  login <email>             Log in to an existing account")
	fmt.Println("  logout                    End the current session")
	fmt.Println("  guest                     Start an ephemeral guest session")
	fmt.Println("  me                        Show the account behind the current session")
	fmt.Println("  task add <title> [priority] [due]   Add a task (due: YYYY-MM-DD)")
	fmt.Println("  task list [status]        List your tasks")
	fmt.Println("  task done <id>            Mark a task done")
	fmt.Println("  task delete <id>          Delete a task")
	fmt.Println("  project add <name>        Add a project")
	fmt.Println("  project list              List your projects")
	fmt.Println("  summary                   Show task analytics for your account")
	fmt.Println("  export <file>             Write your account snapshot to a file")
	fmt.Println("  import <file>             Load a snapshot into your account")
	fmt.Println("  sessions purge            Delete all expired sessions from storage")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  TASKDECK_CONFIG    Core YAML config path (default ~/.config/taskdeck/config.yaml)")
	fmt.Println("  TASKDECK_DB        Database path (overrides the config files)")
	fmt.Println("  TASKDECK_SESSION   Session token (overrides the saved session file)")
	fmt.Println("  TASKDECK_PASSWORD  Password for register/login (prompted if unset)")
}

// loadCLIConfig reads both config sources. Missing files just mean
// defaults; a core config that exists but fails to parse is an error.
func loadCLIConfig() (*cliConfig, error) {
	admin := &adminConfig{}
	path := filepath.Join(configDir(), "admin.toml")
	if _, err := toml.DecodeFile(path, admin); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: ignoring %s: %v\n", path, err)
	}

	cfg := &cliConfig{admin: admin}

	corePath := getConfigPath()
	if _, err := os.Stat(corePath); err != nil {
		if os.Getenv("TASKDECK_CONFIG") != "" {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}
	core, err := config.Load(corePath)
	if err != nil {
		return nil, err
	}
	cfg.core = core
	return cfg, nil
}

func getConfigPath() string {
	if envPath := os.Getenv("TASKDECK_CONFIG"); envPath != "" {
		return envPath
	}
	return filepath.Join(configDir(), "config.yaml")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Logs go to stderr so tabwriter output stays pipeable
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskdeck")
}

func dbPath(cfg *cliConfig) string {
	if p := os.Getenv("TASKDECK_DB"); p != "" {
		return p
	}
	if cfg.core != nil && cfg.core.Database.Path != "" {
		return cfg.core.Database.Path
	}
	if cfg.admin.DBPath != "" {
		return cfg.admin.DBPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "taskdeck.db"
	}
	return filepath.Join(home, ".local", "share", "taskdeck", "taskdeck.db")
}

func sessionTTL(cfg *cliConfig) time.Duration {
	if cfg.core != nil && cfg.core.Sessions.TTL > 0 {
		return cfg.core.Sessions.TTL
	}
	if cfg.admin.SessionTTL == "" {
		return 0
	}
	ttl, err := time.ParseDuration(cfg.admin.SessionTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: ignoring session_ttl %q: %v\n", cfg.admin.SessionTTL, err)
		return 0
	}
	return ttl
}

func bcryptCost(cfg *cliConfig) int {
	if cfg.core != nil {
		return cfg.core.Auth.BcryptCost
	}
	return 0
}

// openServices opens the store and wires the services around it.
func openServices(cfg *cliConfig) (*store.SQLiteStore, *identity.Service, error) {
	s, err := store.NewSQLiteStore(dbPath(cfg))
	if err != nil {
		return nil, nil, err
	}
	svc := identity.NewService(s, identity.Config{
		SessionTTL: sessionTTL(cfg),
		BcryptCost: bcryptCost(cfg),
	})
	return s, svc, nil
}

func sessionFile() string {
	return filepath.Join(configDir(), "session")
}

func currentSession() (string, error) {
	if token := os.Getenv("TASKDECK_SESSION"); token != "" {
		return token, nil
	}
	data, err := os.ReadFile(sessionFile())
	if err != nil {
		return "", fmt.Errorf("no session - run 'taskdeck-admin login' first")
	}
	return strings.TrimSpace(string(data)), nil
}

func saveSession(token string) {
	if err := os.MkdirAll(configDir(), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save session: %v\n", err)
		return
	}
	if err := os.WriteFile(sessionFile(), []byte(token+"\n"), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save session: %v\n", err)
	}
}

func readPassword(prompt string) (string, error) {
	if pw := os.Getenv("TASKDECK_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func cmdRegister(cfg *cliConfig, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: register <email> <name>")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	s, svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	account, sessionID, err := svc.Register(context.Background(), args[0], args[1], password, "taskdeck-admin")
	if err != nil {
		return err
	}

	saveSession(sessionID)
	color.Green("Registered %s (%s)\n", account.Email, account.ID)
	return nil
}

func cmdLogin(cfg *cliConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: login <email>")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	s, svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	account, sessionID, err := svc.Login(context.Background(), args[0], password, "taskdeck-admin")
	if err != nil {
		return err
	}

	saveSession(sessionID)
	color.Green("Logged in as %s\n", account.DisplayName)
	return nil
}

func cmdLogout(cfg *cliConfig) error {
	token, err := currentSession()
	if err != nil {
		return err
	}

	s, svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := svc.Logout(context.Background(), token); err != nil {
		return err
	}
	_ = os.Remove(sessionFile())
	fmt.Println("Logged out")
	return nil
}

func cmdGuest(cfg *cliConfig) error {
	s, svc, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	account, sessionID, err := svc.StartGuestSession(context.Background(), "taskdeck-admin")
	if err != nil {
		return err
	}

	color.Green("Guest session started for %s\n", account.ID)
	fmt.Printf("Session: %s\n", sessionID)
	fmt.Println("Guest identities live only in this process and are gone when it exits.")
	return nil
}

func cmdMe(cfg *cliConfig) error {
	account, s, _, err := authed(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("ID:      %s\n", account.ID)
	fmt.Printf("Email:   %s\n", account.Email)
	fmt.Printf("Name:    %s\n", account.DisplayName)
	fmt.Printf("Tier:    %s (%s)\n", account.SubscriptionTier, account.SubscriptionStatus)
	fmt.Printf("Joined:  %s\n", account.CreatedAt.Format("2006-01-02"))
	return nil
}

// authed resolves the saved session to its account.
func authed(cfg *cliConfig) (*store.Account, *store.SQLiteStore, *identity.Service, error) {
	token, err := currentSession()
	if err != nil {
		return nil, nil, nil, err
	}

	s, svc, err := openServices(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	account, err := svc.ValidateSession(context.Background(), token)
	if err != nil {
		s.Close()
		if errors.Is(err, identity.ErrSessionInvalid) {
			return nil, nil, nil, fmt.Errorf("session expired or invalid - log in again")
		}
		return nil, nil, nil, err
	}

	return account, s, svc, nil
}

func cmdTask(cfg *cliConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: task <add|list|done|delete> ...")
	}

	account, s, _, err := authed(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: task add <title> [priority] [due YYYY-MM-DD]")
		}
		task := newTask(account, args[1:])
		if err := s.CreateTask(ctx, task); err != nil {
			return err
		}
		color.Green("Added task %s\n", task.ID)
		return nil

	case "list":
		filter := store.TaskFilter{}
		if len(args) > 1 {
			filter.Status = args[1]
		}
		tasks, err := s.ListTasksByOwner(ctx, account.ID, filter)
		if err != nil {
			return err
		}
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
		printTasks(tasks)
		return nil

	case "done":
		if len(args) < 2 {
			return fmt.Errorf("usage: task done <id>")
		}
		// Completion timestamp travels with the status change; the store
		// does not couple them
		status := store.TaskStatusDone
		now := time.Now().UTC()
		if _, err := s.UpdateTask(ctx, args[1], store.TaskPatch{Status: &status, CompletedAt: &now}); err != nil {
			return err
		}
		color.Green("Task %s done\n", args[1])
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: task delete <id>")
		}
		if err := s.DeleteTask(ctx, args[1]); err != nil {
			return err
		}
		fmt.Println("Deleted")
		return nil

	default:
		return fmt.Errorf("unknown task subcommand: %s", args[0])
	}
}

func newID() string {
	return uuid.New().String()
}

func newTask(account *store.Account, args []string) *store.Task {
	now := time.Now().UTC()
	task := &store.Task{
		ID:        newID(),
		OwnerID:   account.ID,
		Title:     args[0],
		Status:    store.TaskStatusTodo,
		Priority:  store.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if account.Preferences.DefaultPriority != "" {
		task.Priority = account.Preferences.DefaultPriority
	}
	if len(args) > 1 && args[1] != "" {
		task.Priority = args[1]
	}
	if len(args) > 2 {
		if due, err := time.Parse("2006-01-02", args[2]); err == nil {
			task.DueDate = &due
		}
	}
	return task
}

func printTasks(tasks []*store.Task) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE")
	for _, t := range tasks {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority, due)
	}
	w.Flush()
}

func cmdProject(cfg *cliConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: project <add|list> ...")
	}

	account, s, _, err := authed(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: project add <name>")
		}
		now := time.Now().UTC()
		project := &store.Project{
			ID:        newID(),
			OwnerID:   account.ID,
			Name:      args[1],
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreateProject(ctx, project); err != nil {
			return err
		}
		color.Green("Added project %s\n", project.ID)
		return nil

	case "list":
		projects, err := s.ListProjectsByOwner(ctx, account.ID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tARCHIVED")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%v\n", p.ID, p.Name, p.Archived)
		}
		w.Flush()
		return nil

	default:
		return fmt.Errorf("unknown project subcommand: %s", args[0])
	}
}

func cmdSummary(cfg *cliConfig) error {
	account, s, _, err := authed(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := analytics.NewAggregator(s).Summarize(context.Background(), account.ID)
	if err != nil {
		return err
	}

	color.Cyan("Tasks for %s\n", account.DisplayName)
	fmt.Printf("Total:      %d\n", summary.Total)
	fmt.Printf("Completed:  %d (%.0f%%)\n", summary.Completed, summary.CompletionRate*100)
	fmt.Printf("Overdue:    %d\n", summary.Overdue)
	fmt.Println()
	fmt.Println("By status:")
	for _, status := range []string{store.TaskStatusTodo, store.TaskStatusInProgress, store.TaskStatusReview, store.TaskStatusDone} {
		fmt.Printf("  %-12s %d\n", status, summary.ByStatus[status])
	}
	fmt.Println("By priority:")
	for _, priority := range []string{store.PriorityLow, store.PriorityMedium, store.PriorityHigh, store.PriorityUrgent} {
		fmt.Printf("  %-12s %d\n", priority, summary.ByPriority[priority])
	}
	return nil
}

func cmdExport(cfg *cliConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: export <file>")
	}

	account, s, _, err := authed(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	snapshot, err := export.NewService(s).Export(context.Background(), account.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(args[0], data, 0600); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	color.Green("Exported %d tasks and %d projects to %s\n", len(snapshot.Tasks), len(snapshot.Projects), args[0])
	return nil
}

func cmdImport(cfg *cliConfig, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: import <file>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot export.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	account, s, _, err := authed(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := export.NewService(s).Import(context.Background(), account.ID, &snapshot); err != nil {
		return err
	}

	color.Green("Imported %d tasks and %d projects\n", len(snapshot.Tasks), len(snapshot.Projects))
	return nil
}

func cmdSessions(cfg *cliConfig, args []string) error {
	if len(args) < 1 || args[0] != "purge" {
		return fmt.Errorf("usage: sessions purge")
	}

	s, err := store.NewSQLiteStore(dbPath(cfg))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteExpiredSessions(context.Background()); err != nil {
		return err
	}
	fmt.Println("Expired sessions purged")
	return nil
}
