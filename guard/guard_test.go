package guard_test

import (
	"testing"

	"github.com/jrsteele09/go-todo-spa/guard"
	"github.com/jrsteele09/go-todo-spa/idtoken"
	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"github.com/stretchr/testify/require"
)

type staticSession idtoken.Claims

func (s staticSession) Claims() idtoken.Claims {
	return idtoken.Claims(s)
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.messages = append(n.messages, message)
}

func TestRoleGuard_Check(t *testing.T) {
	tests := []struct {
		name         string
		roles        []string
		requiredRole string
		allowed      bool
		messages     []string
	}{
		{
			name:         "roles claim absent",
			roles:        nil,
			requiredRole: "TaskUser",
			allowed:      false,
			messages:     []string{guard.MissingRolesClaimMessage},
		},
		{
			name:         "roles claim empty",
			roles:        []string{},
			requiredRole: "TaskUser",
			allowed:      false,
			messages:     []string{guard.RoleNotAssignedMessage},
		},
		{
			name:         "required role missing",
			roles:        []string{"TaskUser"},
			requiredRole: "TaskAdmin",
			allowed:      false,
			messages:     []string{guard.RoleNotAssignedMessage},
		},
		{
			name:         "role matching is case sensitive",
			roles:        []string{"taskadmin"},
			requiredRole: "TaskAdmin",
			allowed:      false,
			messages:     []string{guard.RoleNotAssignedMessage},
		},
		{
			name:         "required role present",
			roles:        []string{"TaskUser", "TaskAdmin"},
			requiredRole: "TaskAdmin",
			allowed:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := staticSession{Subject: "user-1", Roles: tt.roles}
			notifier := &recordingNotifier{}
			g := guard.NewRoleGuard(session, notifier)

			require.Equal(t, tt.allowed, g.Check(tt.requiredRole))
			require.Equal(t, tt.messages, notifier.messages)
		})
	}
}

func TestRoleGuard_Authorize(t *testing.T) {
	notifier := &recordingNotifier{}

	t.Run("missing roles claim", func(t *testing.T) {
		err := guard.NewRoleGuard(staticSession{}, notifier).Authorize("TaskUser")
		require.ErrorIs(t, err, apperrors.ErrMissingRolesClaim)
		require.Equal(t, guard.MissingRolesClaimMessage, guard.Message(err))
	})

	t.Run("role not assigned", func(t *testing.T) {
		err := guard.NewRoleGuard(staticSession{Roles: []string{"Other"}}, notifier).Authorize("TaskUser")
		require.ErrorIs(t, err, apperrors.ErrRoleNotAssigned)
		require.Equal(t, guard.RoleNotAssignedMessage, guard.Message(err))
	})

	t.Run("allowed", func(t *testing.T) {
		err := guard.NewRoleGuard(staticSession{Roles: []string{"TaskUser"}}, notifier).Authorize("TaskUser")
		require.NoError(t, err)
	})

	require.Empty(t, notifier.messages, "Authorize never notifies")
}

func TestNotifierFunc(t *testing.T) {
	var got string
	g := guard.NewRoleGuard(staticSession{}, guard.NotifierFunc(func(message string) { got = message }))
	require.False(t, g.Check("TaskUser"))
	require.Equal(t, guard.MissingRolesClaimMessage, got)
}
