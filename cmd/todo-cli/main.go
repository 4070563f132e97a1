// todo-cli runs the to-do list operations from a terminal using tokens
// obtained elsewhere, e.g. copied from a signed-in browser session.
// Each command checks the ID token's roles before calling the list API,
// the same way the web routes do.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jrsteele09/go-todo-spa/guard"
	"github.com/jrsteele09/go-todo-spa/idtoken"
	"github.com/jrsteele09/go-todo-spa/internal/config"
	"github.com/jrsteele09/go-todo-spa/todos"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/oauth2"
)

const (
	idTokenEnvVar     = "TODO_ID_TOKEN"
	accessTokenEnvVar = "TODO_ACCESS_TOKEN"
)

// exitError carries a process exit code back to main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

const (
	exitUsage  = 2
	exitDenied = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.ErrorLevel)

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	apiURI      string
	idToken     string
	accessToken string
	title       string
	description string
	completed   bool
	// fields holds the item flags given on the command line
	fields map[string]any
}

// command is one CLI verb together with the role it requires.
type command struct {
	name  string
	args  string
	admin bool
	run   func(ctx context.Context, client *todos.Client, opts options, args []string) (any, error)
}

var commands = []command{
	{name: "list", run: func(ctx context.Context, client *todos.Client, _ options, _ []string) (any, error) {
		return client.List(ctx)
	}},
	{name: "list-all", admin: true, run: func(ctx context.Context, client *todos.Client, _ options, _ []string) (any, error) {
		return client.ListAll(ctx)
	}},
	{name: "get", args: "<id>", run: func(ctx context.Context, client *todos.Client, _ options, args []string) (any, error) {
		id, err := parseID(args)
		if err != nil {
			return nil, err
		}
		return client.Get(ctx, id)
	}},
	{name: "create", run: func(ctx context.Context, client *todos.Client, opts options, _ []string) (any, error) {
		todo, err := todos.NewTodo(0, opts.fields)
		if err != nil {
			return nil, err
		}
		return client.Create(ctx, todo)
	}},
	{name: "update", args: "<id>", run: func(ctx context.Context, client *todos.Client, opts options, args []string) (any, error) {
		id, err := parseID(args)
		if err != nil {
			return nil, err
		}
		// Members this command does not know about are sent back untouched
		todo, err := client.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		for name, value := range opts.fields {
			if err := todo.Set(name, value); err != nil {
				return nil, err
			}
		}
		todo.ID = id
		return client.Update(ctx, *todo)
	}},
	{name: "delete", args: "<id>", run: func(ctx context.Context, client *todos.Client, _ options, args []string) (any, error) {
		id, err := parseID(args)
		if err != nil {
			return nil, err
		}
		return nil, client.Delete(ctx, id)
	}},
}

func run(ctx context.Context, argv []string, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("todo-cli", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", config.EnvVars{}.GetAuthConfigPath(), "path to auth-config.json")
	flagSet.StringVar(&opts.apiURI, "api", "", "to-do list API base URI (default: resources.todoListApi.resourceUri)")
	flagSet.StringVar(&opts.idToken, "id-token", os.Getenv(idTokenEnvVar), "ID token of the signed-in account (env "+idTokenEnvVar+")")
	flagSet.StringVar(&opts.accessToken, "access-token", os.Getenv(accessTokenEnvVar), "access token for the list API (env "+accessTokenEnvVar+")")
	flagSet.StringVar(&opts.title, "title", "", "item title (create, update)")
	flagSet.StringVar(&opts.description, "description", "", "item description (create, update)")
	flagSet.BoolVar(&opts.completed, "completed", false, "mark the item completed (create, update)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(argv); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stderr, flagSet)
			return nil
		}
		return &exitError{code: exitUsage, err: err}
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}

	opts.fields = itemFields(flagSet, opts)

	args := flagSet.Args()
	if len(args) == 0 {
		printHelp(stderr, flagSet)
		return &exitError{code: exitUsage, err: fmt.Errorf("no command given")}
	}
	cmd, ok := findCommand(args[0])
	if !ok {
		return &exitError{code: exitUsage, err: fmt.Errorf("unknown command %q", args[0])}
	}

	apiURI, roles, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	if opts.idToken == "" {
		return &exitError{code: exitUsage, err: fmt.Errorf("--id-token or %s is required", idTokenEnvVar)}
	}
	claims, err := idtoken.Decode(opts.idToken)
	if err != nil {
		return err
	}

	requiredRole := roles.GetUserRole()
	if cmd.admin {
		requiredRole = roles.GetAdminRole()
	}
	notifier := guard.NotifierFunc(func(message string) {
		fmt.Fprintln(stderr, message)
	})
	if !guard.NewRoleGuard(claimsSession(claims), notifier).Check(requiredRole) {
		return &exitError{code: exitDenied, err: fmt.Errorf("%s requires the %s role", cmd.name, requiredRole)}
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.accessToken, TokenType: "Bearer"})
	client := todos.NewClient(apiURI, oauth2.NewClient(ctx, tokenSource))

	result, err := cmd.run(ctx, client, opts, args[1:])
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// claimsSession lets decoded claims stand in for a signed-in session.
type claimsSession idtoken.Claims

func (c claimsSession) Claims() idtoken.Claims { return idtoken.Claims(c) }

// resolveConfig reads the API URI and role names from the config file. --api
// overrides the URI and makes the file optional.
func resolveConfig(opts options) (string, config.AuthConfig, error) {
	authFile, err := config.LoadAuthConfig(opts.configPath)
	switch {
	case err == nil:
	case opts.apiURI != "" && errors.Is(err, fs.ErrNotExist):
		authFile = &config.AuthFile{}
	default:
		return "", nil, err
	}

	if opts.apiURI != "" {
		return opts.apiURI, authFile, nil
	}
	return authFile.GetTodoListAPIURI(), authFile, nil
}

func itemFields(flagSet *pflag.FlagSet, opts options) map[string]any {
	fields := map[string]any{}
	if flagSet.Changed("title") {
		fields["title"] = opts.title
	}
	if flagSet.Changed("description") {
		fields["description"] = opts.description
	}
	if flagSet.Changed("completed") {
		fields["completed"] = opts.completed
	}
	return fields
}

func findCommand(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

func parseID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, &exitError{code: exitUsage, err: fmt.Errorf("expected exactly one <id> argument")}
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, &exitError{code: exitUsage, err: fmt.Errorf("invalid id %q", args[0])}
	}
	return id, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: todo-cli [flags] <command> [args]\n\nCommands:\n")
	for _, cmd := range commands {
		role := "user role"
		if cmd.admin {
			role = "admin role"
		}
		fmt.Fprintf(w, "  %-10s %-6s (%s)\n", cmd.name, cmd.args, role)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", flagSet.FlagUsages())
}
