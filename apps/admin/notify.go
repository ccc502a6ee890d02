package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/d2monteblanco/ki-aikido-system/core/event"
)

// waiter is implemented by email services that send in the background.
type waiter interface {
	Wait()
}

func (cli *commandLine) notify(at string) error {
	now := event.NowFunc()
	if at != "" {
		var err error
		if now, err = time.Parse(time.RFC3339, at); err != nil {
			return errors.Wrap(err, "parsing -now")
		}
	}

	n, err := cli.eventSvc.NotifyDueReminders(context.Background(), cli.mailSvc, now)
	if err != nil {
		return err
	}
	if w, ok := cli.mailSvc.(waiter); ok {
		w.Wait()
	}
	_, _ = fmt.Fprintf(cli.out, "%d reminders sent\n", n)
	return nil
}
