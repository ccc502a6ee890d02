package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
	"github.com/d2monteblanco/ki-aikido-system/core/event"
	"github.com/d2monteblanco/ki-aikido-system/core/user"
	logsvc "github.com/d2monteblanco/ki-aikido-system/services/logger"
)

// NewLogger returns a logger writing nowhere.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func IntPtr(i int) *int { return &i }

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd, role string, dojoID *int) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		DojoID:    dojoID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateDojo(t *testing.T, repo dojo.Repository, name, contactEmail string) dojo.Dojo {
	t.Helper()
	now := time.Now().UTC()
	d, err := repo.CreateDojo(context.Background(), dojo.Dojo{
		Name:         name,
		ContactEmail: contactEmail,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateDojo() failed: %v", err)
	}
	return d
}

// CreateEvent stores ev as is, bypassing validation & materialization.
func CreateEvent(t *testing.T, repo event.Repository, ev event.Event) event.Event {
	t.Helper()
	if ev.Status == "" {
		ev.Status = event.StatusActive
	}
	if ev.ReminderPriority == "" {
		ev.ReminderPriority = event.PriorityMedium
	}
	if ev.RecurrenceInterval == 0 {
		ev.RecurrenceInterval = 1
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
		ev.UpdatedAt = ev.CreatedAt
	}
	ev, err := repo.CreateEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return ev
}

func CreateReminder(t *testing.T, repo event.Repository, eventID, daysBefore int) event.Reminder {
	t.Helper()
	rems, err := repo.CreateReminders(context.Background(), []event.Reminder{{
		EventID:      eventID,
		DaysBefore:   daysBefore,
		ReminderType: event.ReminderBanner,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}})
	if err != nil {
		t.Fatalf("CreateReminder() failed: %v", err)
	}
	return rems[0]
}
