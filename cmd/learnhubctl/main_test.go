package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/repository"
)

type fakeRoles struct {
	users map[string]model.Role
}

func (f *fakeRoles) SetUserRole(ctx context.Context, username string, role model.Role) error {
	if _, ok := f.users[username]; !ok {
		return repository.ErrUserNotFound
	}
	f.users[username] = role
	return nil
}

func TestSetRole(t *testing.T) {
	store := &fakeRoles{users: map[string]model.Role{"ada": model.RoleLearner}}

	require.NoError(t, setRole(context.Background(), store, "ada", model.RoleAdmin))
	assert.Equal(t, model.RoleAdmin, store.users["ada"])

	err := setRole(context.Background(), store, "bob", model.RoleAdmin)
	assert.EqualError(t, err, `no user named "bob"`)
}

func TestRootCmd_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"promote", "--username", "ada"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "database URL is required")
}

func TestRootCmd_PromoteRequiresUsername(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"promote"})

	assert.ErrorContains(t, cmd.Execute(), "--username is required")
}

func TestRootCmd_MigrateDownSteps(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "down", "--steps", "0"})

	assert.ErrorContains(t, cmd.Execute(), "--steps must be at least 1")
}
