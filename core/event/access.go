package event

import (
	"github.com/pkg/errors"

	"github.com/d2monteblanco/ki-aikido-system/core/user"
)

var ErrForbidden = errors.New("you do not have permission to perform this action")

// CanEdit reports whether usr may create, modify or delete ev.
// Admins may edit anything; dojo users only the dojo events of their own dojo.
func CanEdit(usr user.User, ev Event) bool {
	if usr.IsAdmin() {
		return true
	}
	if ev.EventType == TypeAdmin || ev.DojoID == nil {
		return false
	}
	return usr.CanAccessDojo(*ev.DojoID)
}
