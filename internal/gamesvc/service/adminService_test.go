package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/avvvet/numbet-services/internal/auth"
	"github.com/avvvet/numbet-services/internal/gamesvc/apperr"
	"github.com/avvvet/numbet-services/internal/gamesvc/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminLoginIssuesAdminToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ja := auth.New("test-secret")
	svc := service.NewAdminService(f.admins, ja, time.Hour)

	require.NoError(t, svc.EnsureAdmin(ctx, " Ops@Example.com ", "hunter2"))

	session, err := svc.Login(ctx, "OPS@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", session.Admin.Email)
	assert.Equal(t, auth.RoleAdmin, session.Admin.Role)
	assert.NoError(t, auth.VerifyAdmin(ja, session.Token))
	assert.Error(t, auth.VerifyAdmin(auth.New("other-secret"), session.Token))

	_, err = svc.Login(ctx, "ops@example.com", "wrong")
	assert.Equal(t, "Invalid password", apperr.Message(err))

	_, err = svc.Login(ctx, "nobody@example.com", "hunter2")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, "Admin not found", apperr.Message(err))

	_, err = svc.Login(ctx, "", "")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestEnsureAdminRotatesPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := service.NewAdminService(f.admins, auth.New("s"), time.Hour)

	require.NoError(t, svc.EnsureAdmin(ctx, "ops@example.com", "one"))
	first, err := f.admins.GetByEmail(ctx, "ops@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.EnsureAdmin(ctx, "ops@example.com", "one"))
	same, _ := f.admins.GetByEmail(ctx, "ops@example.com")
	assert.Equal(t, first.Password, same.Password, "matching password is left alone")

	require.NoError(t, svc.EnsureAdmin(ctx, "ops@example.com", "two"))
	rotated, _ := f.admins.GetByEmail(ctx, "ops@example.com")
	assert.Equal(t, first.ID, rotated.ID)
	assert.NotEqual(t, first.Password, rotated.Password)

	_, err = svc.Login(ctx, "ops@example.com", "two")
	assert.NoError(t, err)

	assert.Error(t, svc.EnsureAdmin(ctx, "", "x"))
}
