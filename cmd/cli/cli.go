package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nickyhof/FlatDB"
	"github.com/nickyhof/FlatDB/auth"
	"github.com/nickyhof/FlatDB/core"
	"github.com/nickyhof/FlatDB/db"
	"github.com/nickyhof/FlatDB/ps"
	"github.com/nickyhof/FlatDB/sql"
	"github.com/peterh/liner"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

const maxHistory = 1000

// lineEditor is the subset of *liner.State the shell uses.
type lineEditor interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
	AppendHistory(item string)
}

// newChallenge is swapped in tests.
var newChallenge = auth.NewChallenge

// CLI holds the CLI state
type CLI struct {
	instance    *FlatDB.Instance
	store       *auth.CredentialStore // nil skips the login menu
	engine      *db.Engine
	line        lineEditor
	out         io.Writer
	remote      *db.RemoteConfig
	journalAuth *ps.RemoteAuth
	history     []string
	historyFile string
}

func NewCLI(instance *FlatDB.Instance, store *auth.CredentialStore, line lineEditor, out io.Writer) *CLI {
	return &CLI{
		instance: instance,
		store:    store,
		line:     line,
		out:      out,
		history:  make([]string, 0),
	}
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintf(w, "%s%s║ %-37s ║%s\n", BoldColor, PromptColor, "FlatDB v"+Version, ResetColor)
	fmt.Fprintf(w, "%s%s║ %-37s ║%s\n", BoldColor, PromptColor, "Flat-file relational query engine", ResetColor)
	fmt.Fprintf(w, "%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w)
}

func (cli *CLI) errorf(format string, args ...any) {
	fmt.Fprintf(cli.out, "%s✗ %s%s\n", ErrorColor, fmt.Sprintf(format, args...), ResetColor)
}

func (cli *CLI) successf(format string, args ...any) {
	fmt.Fprintf(cli.out, "%s✓ %s%s\n", SuccessColor, fmt.Sprintf(format, args...), ResetColor)
}

// Run shows the main menu, or goes straight to the shell when there is
// no credential store.
func (cli *CLI) Run() {
	if cli.store == nil {
		cli.startSession(core.Identity{Name: "flatdb"})
		cli.repl()
		return
	}

	for {
		fmt.Fprintln(cli.out)
		fmt.Fprintln(cli.out, "1. Login")
		fmt.Fprintln(cli.out, "2. Register")
		fmt.Fprintln(cli.out, "3. Exit")

		choice, err := cli.line.Prompt("Select an option: ")
		if err != nil {
			return
		}

		switch strings.TrimSpace(choice) {
		case "1":
			if !cli.login() {
				continue
			}
			if quit := cli.repl(); quit {
				return
			}
		case "2":
			cli.register()
		case "3":
			fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		default:
			cli.errorf("Invalid option: %s", strings.TrimSpace(choice))
		}
	}
}

// RunScript executes a script without the REPL. The login gate still
// applies unless the CLI has no credential store.
func (cli *CLI) RunScript(ctx context.Context, source string) error {
	if cli.store != nil {
		if !cli.login() {
			return auth.ErrInvalidCredentials
		}
	} else {
		cli.startSession(core.Identity{Name: "flatdb"})
	}
	return cli.importScript(ctx, source)
}

func (cli *CLI) startSession(identity core.Identity) {
	cli.engine = cli.instance.Engine(identity)
}

// login checks the password and then the numeric challenge.
func (cli *CLI) login() bool {
	username, err := cli.line.Prompt("Username: ")
	if err != nil {
		return false
	}
	password, err := cli.line.PasswordPrompt("Password: ")
	if err != nil {
		return false
	}

	if err := cli.store.Verify(username, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			cli.errorf("Login failed due to incorrect credentials.")
		} else {
			cli.errorf("Login failed: %v", err)
		}
		return false
	}

	challenge := newChallenge()
	fmt.Fprintf(cli.out, "Captcha: %s\n", challenge)
	answer, err := cli.line.Prompt("Enter captcha: ")
	if err != nil || !challenge.Check(answer) {
		cli.errorf("Captcha validation failed.")
		return false
	}

	cli.successf("Login successful!")
	cli.startSession(core.Identity{Name: strings.TrimSpace(username)})
	return true
}

func (cli *CLI) register() {
	username, err := cli.line.Prompt("Username: ")
	if err != nil {
		return
	}
	password, err := cli.line.PasswordPrompt("Password: ")
	if err != nil {
		return
	}

	if err := cli.store.Register(username, password); err != nil {
		cli.errorf("Registration failed: %v", err)
		return
	}
	cli.successf("User registered successfully.")
}

// repl reads statements until "exit" (log out) or .quit / EOF (quit).
func (cli *CLI) repl() (quit bool) {
	fmt.Fprintln(cli.out, "Type .help for commands, exit to log out")

	var multiLineBuffer strings.Builder
	for {
		input, err := cli.line.Prompt(cli.getPrompt(multiLineBuffer.Len() > 0))
		if errors.Is(err, liner.ErrPromptAborted) {
			multiLineBuffer.Reset()
			continue
		}
		if err != nil {
			fmt.Fprintf(cli.out, "\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return true
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}

		if multiLineBuffer.Len() == 0 {
			if strings.EqualFold(strings.TrimSuffix(trimmed, ";"), "exit") {
				fmt.Fprintf(cli.out, "%sLogged out.%s\n", SuccessColor, ResetColor)
				return false
			}
			if strings.HasPrefix(trimmed, ".") {
				if quit := cli.handleCommand(trimmed); quit {
					return true
				}
				continue
			}
		}

		// accumulate until the statement ends with ';'
		multiLineBuffer.WriteString(input)
		text := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(text, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}
		multiLineBuffer.Reset()

		cli.addToHistory(text)
		for _, statement := range sql.SplitStatements(text) {
			cli.execute(statement)
		}
	}
}

func (cli *CLI) execute(statement string) {
	result, err := cli.engine.Execute(statement)
	if err != nil {
		// a partly applied COMMIT or multi-row INSERT still has a summary
		if r, ok := result.(db.CommitResult); ok && (r.Replayed > 0 || r.RecordsWritten > 0) {
			r.Display(cli.out)
		}
		cli.errorf("Error: %v", err)
		return
	}
	result.Display(cli.out)
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return "   ...> "
	}

	dbPart := ""
	if session := cli.engine.Session(); session.HasDatabase() {
		dbPart = fmt.Sprintf(" (%s)", session.Database)
	}
	if cli.engine.TransactionState() == db.Active {
		dbPart += "*"
	}
	return fmt.Sprintf("flatdb%s> ", dbPart)
}

// handleCommand runs a dot command and reports whether the shell should quit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".q":
		fmt.Fprintf(cli.out, "%sGoodbye!%s\n", SuccessColor, ResetColor)
		return true

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".databases", ".dbs":
		cli.display(cli.engine.ShowDatabases())

	case ".tables":
		cli.display(cli.engine.ShowTables())

	case ".schema":
		if len(parts) < 2 {
			cli.errorf("Usage: .schema <table>")
			break
		}
		cli.display(cli.engine.DescribeTable(parts[1]))

	case ".import":
		if len(parts) < 2 {
			cli.errorf("Usage: .import <file|url>")
			break
		}
		if err := cli.importScript(context.Background(), parts[1]); err != nil {
			cli.errorf("Error: %v", err)
		}

	case ".export":
		if len(parts) < 3 {
			cli.errorf("Usage: .export <table> <file|url>")
			break
		}
		n, err := cli.engine.ExportTable(context.Background(), parts[1], parts[2], cli.remote)
		if err != nil {
			cli.errorf("Error: %v", err)
			break
		}
		cli.successf("Exported %s to %s (%d bytes)", parts[1], parts[2], n)

	case ".history":
		cli.printHistory()

	case ".log":
		limit := 20
		if len(parts) > 1 {
			if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 {
				limit = n
			}
		}
		cli.display(cli.engine.HistoryLog(limit))

	case ".remote":
		cli.handleRemote(parts[1:])

	case ".push":
		remote := ps.DefaultRemote
		if len(parts) > 1 {
			remote = parts[1]
		}
		if err := cli.engine.PushHistory(remote, cli.journalAuth); err != nil {
			cli.errorf("Error: %v", err)
			break
		}
		cli.successf("Journal pushed to %s", remote)

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".version":
		fmt.Fprintf(cli.out, "FlatDB version %s\n", Version)

	default:
		cli.errorf("Unknown command: %s (type .help for commands)", parts[0])
	}

	return false
}

func (cli *CLI) handleRemote(args []string) {
	if len(args) == 0 {
		cli.display(cli.engine.Remotes())
		return
	}

	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) != 3 {
			cli.errorf("Usage: .remote add <name> <url>")
			return
		}
		if err := cli.engine.AddRemote(args[1], args[2]); err != nil {
			cli.errorf("Error: %v", err)
			return
		}
		cli.successf("Remote %s added", args[1])
	case "remove", "rm":
		if len(args) != 2 {
			cli.errorf("Usage: .remote remove <name>")
			return
		}
		if err := cli.engine.RemoveRemote(args[1]); err != nil {
			cli.errorf("Error: %v", err)
			return
		}
		cli.successf("Remote %s removed", args[1])
	default:
		cli.errorf("Usage: .remote [add <name> <url> | remove <name>]")
	}
}

func (cli *CLI) display(result db.ListResult, err error) {
	if err != nil {
		cli.errorf("Error: %v", err)
		return
	}
	result.Display(cli.out)
}

func (cli *CLI) printHelp() {
	w := cli.out
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  .help, .h                Show this help message")
	fmt.Fprintln(w, "  .quit                    Exit the shell")
	fmt.Fprintln(w, "  exit                     Log out and return to the menu")
	fmt.Fprintln(w, "  .databases               List all databases")
	fmt.Fprintln(w, "  .tables                  List tables in the current database")
	fmt.Fprintln(w, "  .schema <table>          Show the declared columns of a table")
	fmt.Fprintln(w, "  .import <file|url>       Execute statements from a file, http(s):// or s3:// URL")
	fmt.Fprintln(w, "  .export <table> <dest>   Copy a table's data file to a path or s3:// URL")
	fmt.Fprintln(w, "  .history                 Show command history")
	fmt.Fprintln(w, "  .log [n]                 Show the last n journal entries")
	fmt.Fprintln(w, "  .remote [add|remove]     List or edit journal replicas")
	fmt.Fprintln(w, "  .push [remote]           Push the journal to a replica (default origin)")
	fmt.Fprintln(w, "  .clear                   Clear the screen")
	fmt.Fprintln(w, "  .version                 Show version info")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sStatements:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  CREATE DATABASE <name>;")
	fmt.Fprintln(w, "  USE <name>;")
	fmt.Fprintln(w, "  CREATE TABLE <table> (<column> <type>, ...);")
	fmt.Fprintln(w, "  INSERT INTO <table> VALUES (<value>, ...);")
	fmt.Fprintln(w, "  SELECT <cols|*> FROM <table> [WHERE <col> <=|>|<> <value>];")
	fmt.Fprintln(w, "  UPDATE <table> SET <col>=<value|col+n|col-n>, ... [WHERE ...];")
	fmt.Fprintln(w, "  DELETE FROM <table> [WHERE ...];")
	fmt.Fprintln(w, "  BEGIN; COMMIT; ROLLBACK;")
	fmt.Fprintln(w)
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)
	cli.line.AppendHistory(cmd)

	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}
	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func (cli *CLI) loadHistory(line *liner.State) {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	line.ReadHistory(file)
}

func (cli *CLI) saveHistory(line *liner.State) {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	line.WriteHistory(file)
}

// importScript executes every statement of a script and prints one
// compact line per statement.
func (cli *CLI) importScript(ctx context.Context, source string) error {
	outcomes, err := cli.engine.ImportScript(ctx, source, cli.remote)
	if err != nil {
		return err
	}

	successCount := 0
	errorCount := 0
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			fmt.Fprintf(cli.out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(outcome.Statement, 50), ResetColor)
			fmt.Fprintf(cli.out, "      Error: %v\n", outcome.Err)
			errorCount++
			continue
		}

		successCount++
		switch r := outcome.Result.(type) {
		case db.CommitResult:
			if r.Ignored {
				fmt.Fprintf(cli.out, "[%d] - %s (ignored)\n", i+1, truncate(outcome.Statement, 50))
				continue
			}
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s (%s)%s\n", SuccessColor, i+1, truncate(outcome.Statement, 50), r.Summary(), ResetColor)
			for _, query := range r.Queries {
				query.Display(cli.out)
			}
		case db.QueryResult:
			fmt.Fprintf(cli.out, "%s[%d] ✓ %s (%d rows)%s\n", SuccessColor, i+1, truncate(outcome.Statement, 50), len(r.Data), ResetColor)
			r.Display(cli.out)
		}
	}

	fmt.Fprintf(cli.out, "\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)
	return nil
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
