// Package cli implements the expenses terminal client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"expense-tracker-server/src/client"
	"expense-tracker-server/src/models"

	"golang.org/x/term"
)

// API is the part of client.Client the commands use.
type API interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*client.SignUpResult, error)
	SignIn(ctx context.Context, username, password string) (*models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error)
	SignOut(ctx context.Context, accessToken string) error
	ValidateToken(ctx context.Context, accessToken string) (*client.Identity, error)
	ListExpenses(ctx context.Context, accessToken string) ([]models.Expense, error)
	CreateExpense(ctx context.Context, accessToken string, fields map[string]any) (*models.Expense, error)
	UpdateExpense(ctx context.Context, accessToken, id string, fields map[string]any) (*client.UpdateResult, error)
	DeleteExpense(ctx context.Context, accessToken, id string) error
}

type Sessions interface {
	Load() (*models.AuthResult, error)
	Save(tokens *models.AuthResult) error
	Clear() error
}

type App struct {
	api      API
	sessions Sessions
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer

	readPassword func(io.Reader) (string, error)
}

func NewApp(api API, sessions Sessions, stdin io.Reader, stdout, stderr io.Writer) *App {
	return &App{
		api:          api,
		sessions:     sessions,
		stdin:        stdin,
		stdout:       stdout,
		stderr:       stderr,
		readPassword: readPassword,
	}
}

const usage = `Usage: expenses <command> [flags]

Commands:
  signup   -username <name> -email <email> [-password <pw>]
  signin   -username <name> [-password <pw>]
  signout
  whoami
  list
  add      -amount <n> -category <c> -description <d> [-date <d>]
  update   -id <id> [-amount <n>] [-category <c>] [-description <d>] [-date <d>]
  delete   -id <id>
`

// Run executes one command. flag.ErrHelp is returned when usage was printed.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.stderr, usage)
		return flag.ErrHelp
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "signup":
		return a.signUp(ctx, rest)
	case "signin":
		return a.signIn(ctx, rest)
	case "signout":
		return a.signOut(ctx)
	case "whoami":
		return a.whoAmI(ctx)
	case "list":
		return a.list(ctx)
	case "add":
		return a.add(ctx, rest)
	case "update":
		return a.update(ctx, rest)
	case "delete":
		return a.remove(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.stdout, usage)
		return flag.ErrHelp
	default:
		fmt.Fprint(a.stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *App) password(value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(a.stdout, "Password: ")
	pw, err := a.readPassword(a.stdin)
	fmt.Fprintln(a.stdout)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if strings.TrimSpace(pw) == "" {
		return "", errors.New("password cannot be empty")
	}
	return pw, nil
}

func (a *App) signUp(ctx context.Context, args []string) error {
	fs := a.flags("signup")
	username := fs.String("username", "", "Username")
	email := fs.String("email", "", "Email address")
	pwFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *email == "" {
		return errors.New("missing required flags: username, email")
	}

	pw, err := a.password(*pwFlag)
	if err != nil {
		return err
	}
	res, err := a.api.SignUp(ctx, models.SignUpRequest{Username: *username, Email: *email, Password: pw})
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	fmt.Fprintf(a.stdout, "User %s created successfully. You can now sign in.\n", res.Username)
	return nil
}

func (a *App) signIn(ctx context.Context, args []string) error {
	fs := a.flags("signin")
	username := fs.String("username", "", "Username")
	pwFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("missing required flags: username")
	}

	pw, err := a.password(*pwFlag)
	if err != nil {
		return err
	}
	tokens, err := a.api.SignIn(ctx, *username, pw)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := a.sessions.Save(tokens); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Signed in as %s\n", *username)
	return nil
}

// signOut always forgets the local session, even when the API call fails.
func (a *App) signOut(ctx context.Context) error {
	tokens, err := a.sessions.Load()
	if err != nil {
		if errors.Is(err, client.ErrNoSession) {
			fmt.Fprintln(a.stdout, "Not signed in")
			return nil
		}
		return err
	}

	apiErr := a.api.SignOut(ctx, tokens.AccessToken)
	if err := a.sessions.Clear(); err != nil {
		return err
	}
	var unauthorized *client.APIError
	if apiErr != nil && !(errors.As(apiErr, &unauthorized) && unauthorized.Unauthorized()) {
		return fmt.Errorf("signout failed: %w", apiErr)
	}
	fmt.Fprintln(a.stdout, "Signed out")
	return nil
}

func (a *App) whoAmI(ctx context.Context) error {
	var id *client.Identity
	err := a.withSession(ctx, func(token string) error {
		var err error
		id, err = a.api.ValidateToken(ctx, token)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s (%s)\n", id.Username, id.UserID)
	return nil
}

func (a *App) list(ctx context.Context) error {
	var expenses []models.Expense
	err := a.withSession(ctx, func(token string) error {
		var err error
		expenses, err = a.api.ListExpenses(ctx, token)
		return err
	})
	if err != nil {
		fmt.Fprintf(a.stderr, "Fetch expenses error: %v\n", err)
		return err
	}

	if len(expenses) == 0 {
		fmt.Fprintln(a.stdout, "No expenses")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Category, strconv.FormatFloat(e.Amount, 'f', 2, 64), e.Description)
	}
	return tw.Flush()
}

func (a *App) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	amount := fs.String("amount", "", "Amount")
	category := fs.String("category", "", "Category")
	description := fs.String("description", "", "Description")
	date := fs.String("date", "", "Date (defaults to now)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *amount == "" || *category == "" || *description == "" {
		return errors.New("missing required flags: amount, category, description")
	}

	fields := map[string]any{
		models.FieldAmount:      *amount,
		models.FieldCategory:    *category,
		models.FieldDescription: *description,
	}
	if *date != "" {
		fields[models.FieldDate] = *date
	}

	var created *models.Expense
	err := a.withSession(ctx, func(token string) error {
		var err error
		created, err = a.api.CreateExpense(ctx, token, fields)
		return err
	})
	if err != nil {
		return fmt.Errorf("add expense failed: %w", err)
	}
	fmt.Fprintf(a.stdout, "Added expense %s\n", created.ID)
	return nil
}

// update sends only the flags given on the command line.
func (a *App) update(ctx context.Context, args []string) error {
	fs := a.flags("update")
	id := fs.String("id", "", "Expense id")
	fs.String(models.FieldAmount, "", "Amount")
	fs.String(models.FieldCategory, "", "Category")
	fs.String(models.FieldDescription, "", "Description")
	fs.String(models.FieldDate, "", "Date")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("missing required flags: id")
	}

	fields := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		if f.Name != "id" {
			fields[f.Name] = f.Value.String()
		}
	})

	var res *client.UpdateResult
	err := a.withSession(ctx, func(token string) error {
		var err error
		res, err = a.api.UpdateExpense(ctx, token, *id, fields)
		return err
	})
	if err != nil {
		return fmt.Errorf("update expense failed: %w", err)
	}
	fmt.Fprintf(a.stdout, "%s: %s %s %.2f %s\n", res.Message, res.UpdatedExpense.ID,
		res.UpdatedExpense.Category, res.UpdatedExpense.Amount, res.UpdatedExpense.Description)
	return nil
}

func (a *App) remove(ctx context.Context, args []string) error {
	fs := a.flags("delete")
	id := fs.String("id", "", "Expense id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" && fs.NArg() > 0 {
		*id = fs.Arg(0)
	}
	if *id == "" {
		return errors.New("missing required flags: id")
	}

	err := a.withSession(ctx, func(token string) error {
		return a.api.DeleteExpense(ctx, token, *id)
	})
	if err != nil {
		fmt.Fprintf(a.stderr, "Delete expense error: %v\n", err)
		return errors.New("failed to delete expense")
	}
	fmt.Fprintf(a.stdout, "Deleted expense %s\n", *id)
	return nil
}

// withSession runs call with the stored access token. A rejected token is
// refreshed once; if that fails too the local session is cleared.
func (a *App) withSession(ctx context.Context, call func(token string) error) error {
	tokens, err := a.sessions.Load()
	if err != nil {
		if errors.Is(err, client.ErrNoSession) {
			return errors.New("not signed in, run: expenses signin -username <name>")
		}
		return err
	}

	err = call(tokens.AccessToken)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		return err
	}

	if tokens.RefreshToken != "" {
		refreshed, rerr := a.api.Refresh(ctx, tokens.RefreshToken)
		if rerr == nil {
			refreshed.RefreshToken = tokens.RefreshToken
			if err := a.sessions.Save(refreshed); err != nil {
				return err
			}
			return call(refreshed.AccessToken)
		}
	}

	if cerr := a.sessions.Clear(); cerr != nil {
		return cerr
	}
	return fmt.Errorf("session expired, sign in again: %w", err)
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	// Non-terminal input such as a pipe.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
