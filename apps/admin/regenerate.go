package main

import (
	"context"
	"fmt"

	"github.com/d2monteblanco/ki-aikido-system/core/user"
)

// cliActor is the identity the CLI acts as on events.
var cliActor = user.User{Name: "admin cli", Role: user.RoleAdmin, IsActive: true}

func (cli *commandLine) regenerate(eventID int) error {
	ctx := context.Background()
	if eventID > 0 {
		n, err := cli.eventSvc.Regenerate(ctx, cliActor, eventID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cli.out, "event %d: %d occurrences generated\n", eventID, n)
		return nil
	}

	events, occs, err := cli.eventSvc.RegenerateAll(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d recurring events: %d occurrences generated\n", events, occs)
	return nil
}
