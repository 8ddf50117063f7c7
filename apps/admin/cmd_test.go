package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core/access"
	"github.com/trezcool/masomo-lms/core/user"
	inmemdb "github.com/trezcool/masomo-lms/storage/database/inmem"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	// set up DB & repos
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())

	// start CLI
	return &commandLine{usrRepo: usrRepo}
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "ratings", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "-email", "admin@test.cd"}, extra: extra{pwd: "secret"}, wantErr: errHelp},
		{name: "bad role", args: []string{"adduser", "-email", "admin@test.cd", "-name", "Admin", "-role", "root"}, extra: extra{pwd: "secret"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "admin@test.cd", "-name", "Admin"}, wantErr: errHelp},
		{name: "create admin", args: []string{"adduser", "-email", "Admin@Test.cd", "-name", "Admin"}, extra: extra{pwd: "secret"}},
		{name: "update existing", args: []string{"adduser", "-email", "admin@test.cd", "-name", "Boss", "-role", "instructor"}, extra: extra{pwd: "other"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			var pwd string
			if e, ok := tt.extra.(extra); ok {
				pwd = e.pwd
			}
			mockPassword(t, pwd)

			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			usr, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "admin@test.cd"})
			require.NoError(t, err)
			assert.NoError(t, usr.CheckPassword(pwd))
		})
	}

	users, err := usrRepo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Boss", users[0].Name)
	assert.Equal(t, access.RoleInstructor, users[0].Role)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	mockPassword(t, "first")
	require.NoError(t, cli.run([]string{"admin", "adduser", "-email", "awe@test.cd", "-name", "Awe", "-role", "student"}))
	usr, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "awe@test.cd"})
	require.NoError(t, err)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "AWE@test.cd"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			var pwd string
			if e, ok := tt.extra.(extra); ok {
				pwd = e.pwd
			}
			mockPassword(t, pwd)

			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)

			refreshedUsr, err := usrRepo.GetUser(ctx, user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NotEqual(t, usr.PasswordHash, refreshedUsr.PasswordHash)
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
		})
	}
}
