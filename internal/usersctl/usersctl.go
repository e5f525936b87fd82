// Package usersctl implements the operator commands that manage credential
// accounts outside the HTTP API.
package usersctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/campushub/auth-service/internal/models"
)

// Directory is the part of users.Service the commands use.
type Directory interface {
	Register(ctx context.Context, email, password, username string, role models.Role) (*models.User, error)
	SetStatus(ctx context.Context, email string, status models.Status, active bool) (*models.User, error)
}

// Command is a parsed invocation.
type Command struct {
	Name     string
	Email    string
	Password string
	Username string
	Role     string
	Status   string
	Active   bool
}

const usage = `usage:
  usersctl create -email <email> -password <password> [-username <name>] [-role student|moderator|admin]
  usersctl status -email <email> -status active|suspended|banned [-active=true|false]`

// Parse reads a subcommand and its flags from args (without the program name).
func Parse(args []string, stderr io.Writer) (Command, error) {
	if len(args) == 0 {
		return Command{}, errors.New(usage)
	}
	cmd := Command{Name: args[0], Active: true}
	fs := flag.NewFlagSet("usersctl "+cmd.Name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cmd.Email, "email", "", "account email")

	switch cmd.Name {
	case "create":
		fs.StringVar(&cmd.Password, "password", "", "initial password (min 6 characters)")
		fs.StringVar(&cmd.Username, "username", "", "display name (default: email local part)")
		fs.StringVar(&cmd.Role, "role", string(models.RoleStudent), "account role")
	case "status":
		fs.StringVar(&cmd.Status, "status", "", "moderation status")
		fs.BoolVar(&cmd.Active, "active", true, "active flag")
	default:
		return Command{}, fmt.Errorf("unknown command %q\n%s", cmd.Name, usage)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return Command{}, err
	}

	if cmd.Email == "" {
		return Command{}, errors.New("-email is required")
	}
	switch cmd.Name {
	case "create":
		if len(cmd.Password) < 6 {
			return Command{}, errors.New("-password must be at least 6 characters")
		}
	case "status":
		if cmd.Status == "" {
			return Command{}, errors.New("-status is required")
		}
	}
	return cmd, nil
}

// Run executes cmd and writes the resulting public user as JSON to out.
func Run(ctx context.Context, cmd Command, dir Directory, out io.Writer) error {
	var (
		u   *models.User
		err error
	)
	switch cmd.Name {
	case "create":
		u, err = dir.Register(ctx, cmd.Email, cmd.Password, cmd.Username, models.Role(cmd.Role))
	case "status":
		u, err = dir.SetStatus(ctx, cmd.Email, models.Status(cmd.Status), cmd.Active)
	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(u.Profile())
}
