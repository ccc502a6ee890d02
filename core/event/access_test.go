package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/d2monteblanco/ki-aikido-system/core/user"
)

func TestCanEdit(t *testing.T) {
	dojo1, dojo2 := 1, 2
	admin := user.User{ID: 1, Role: user.RoleAdmin}
	sensei := user.User{ID: 2, Role: user.RoleDojoUser, DojoID: &dojo1}
	orphan := user.User{ID: 3, Role: user.RoleDojoUser}

	adminEvent := Event{EventType: TypeAdmin}
	ownDojoEvent := Event{EventType: TypeDojo, DojoID: &dojo1}
	otherDojoEvent := Event{EventType: TypeDojo, DojoID: &dojo2}
	noDojoEvent := Event{EventType: TypeDojo}

	tests := []struct {
		name string
		usr  user.User
		ev   Event
		want bool
	}{
		{name: "admin, admin event", usr: admin, ev: adminEvent, want: true},
		{name: "admin, dojo event", usr: admin, ev: otherDojoEvent, want: true},
		{name: "dojo user, admin event", usr: sensei, ev: adminEvent},
		{name: "dojo user, own dojo event", usr: sensei, ev: ownDojoEvent, want: true},
		{name: "dojo user, other dojo event", usr: sensei, ev: otherDojoEvent},
		{name: "dojo user, dojo event without dojo", usr: sensei, ev: noDojoEvent},
		{name: "dojo user without dojo", usr: orphan, ev: ownDojoEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanEdit(tt.usr, tt.ev))
		})
	}
}
