package event

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/d2monteblanco/ki-aikido-system/core"
)

// digest is the data of the reminders email template.
type digest struct {
	Recipient string
	Items     []DueReminder
}

// NotifyDueReminders emails the due reminders not sent yet, then marks them as triggered.
// Dojo events go to their dojo's contact email, admin events to the digest recipient.
// It returns the number of reminders sent.
func (svc *Service) NotifyDueReminders(ctx context.Context, mailSvc core.EmailService, now time.Time) (int, error) {
	due, err := svc.ActiveReminders(ctx, now)
	if err != nil {
		return 0, err
	}

	var (
		order   []string
		byEmail = make(map[string]*digest)
		addrs   = make(map[string]mail.Address)
		ids     []int
	)
	add := func(addr mail.Address, item DueReminder) {
		d, ok := byEmail[addr.Address]
		if !ok {
			name := addr.Name
			if name == "" {
				name = addr.Address
			}
			d = &digest{Recipient: name}
			byEmail[addr.Address] = d
			addrs[addr.Address] = addr
			order = append(order, addr.Address)
		}
		d.Items = append(d.Items, item)
	}

	dojoAddrs := make(map[int]mail.Address)
	for _, item := range due {
		if item.TriggeredAt != nil {
			continue
		}
		addr := svc.conf.DigestRecipient
		if item.Event.DojoID != nil {
			dojoAddr, ok := dojoAddrs[*item.Event.DojoID]
			if !ok {
				dj, err := svc.dojoRepo.GetDojoByID(ctx, *item.Event.DojoID)
				if err != nil {
					return 0, errors.Wrap(err, "getting dojo")
				}
				dojoAddr = mail.Address{Name: dj.Name, Address: dj.ContactEmail}
				dojoAddrs[dj.ID] = dojoAddr
			}
			if dojoAddr.Address != "" {
				addr = dojoAddr
			}
		}
		if addr.Address == "" {
			svc.logger.Warn(fmt.Sprintf("no recipient for reminder %d of event %d", item.ID, item.Event.ID))
			continue
		}
		add(addr, item)
		ids = append(ids, item.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	stamp := now.UTC()
	msgs := make([]*core.EmailMessage, 0, len(order))
	for _, email := range order {
		d := byEmail[email]
		events := make([]Event, 0, len(d.Items))
		seen := make(map[int]bool)
		for _, item := range d.Items {
			if !seen[item.Event.ID] && !item.Event.IsRecurring {
				seen[item.Event.ID] = true
				events = append(events, item.Event)
			}
		}
		msg := &core.EmailMessage{
			To:           []mail.Address{addrs[email]},
			Subject:      "Upcoming events",
			TemplateName: "reminders",
			TemplateData: d,
		}
		if len(events) > 0 {
			msg.Attachments = []core.Attachment{{
				Filename:    "events.ics",
				ContentType: "text/calendar",
				Content:     []byte(NewCalendar("Upcoming events", events, nil, stamp).Serialize()),
			}}
		}
		msgs = append(msgs, msg)
	}

	if err = svc.repo.MarkRemindersTriggered(ctx, ids, stamp); err != nil {
		return 0, errors.Wrap(err, "marking reminders as triggered")
	}
	mailSvc.SendMessages(msgs...)
	return len(ids), nil
}
