package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
	"github.com/d2monteblanco/ki-aikido-system/core/event"
	"github.com/d2monteblanco/ki-aikido-system/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	logger   core.Logger
	out      io.Writer
	db       *sql.DB // nil for the memory engine
	usrSvc   *user.Service
	dojoSvc  *dojo.Service
	eventSvc *event.Service
	mailSvc  core.EmailService
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, redo, ...)")
	_, _ = fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME [-admin] [-dojo ID] - create or update a user; the password is prompted")
	_, _ = fmt.Fprintln(cli.out, "  loaddojos -file FILE - create or update the dojos listed in a YAML file")
	_, _ = fmt.Fprintln(cli.out, "  regenerate [-event ID] - rebuild the occurrences of one recurring event, or of all of them")
	_, _ = fmt.Fprintln(cli.out, "  notify [-now RFC3339] - email the due reminders not sent yet")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant the admin role. Dojo users are scoped to -dojo.")
	addUserDojo := addUserCmd.Int("dojo", 0, "The ID of the user's dojo.")

	loadDojosCmd := flag.NewFlagSet("loaddojos", flag.ContinueOnError)
	loadDojosFile := loadDojosCmd.String("file", "", "Path of the YAML file listing the dojos.")

	regenerateCmd := flag.NewFlagSet("regenerate", flag.ContinueOnError)
	regenerateEvent := regenerateCmd.Int("event", 0, "The ID of the recurring event. All recurring events when omitted.")

	notifyCmd := flag.NewFlagSet("notify", flag.ContinueOnError)
	notifyNow := notifyCmd.String("now", "", "Evaluate reminders at this RFC 3339 time instead of now.")

	for _, fs := range []*flag.FlagSet{addUserCmd, loadDojosCmd, regenerateCmd, notifyCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		_, _ = fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		_, _ = fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, string(pwd), *addUserAdmin, *addUserDojo)

	case "loaddojos":
		if err := loadDojosCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loadDojosFile == "" {
			loadDojosCmd.Usage()
			return errHelp
		}
		return cli.loadDojos(*loadDojosFile)

	case "regenerate":
		if err := regenerateCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.regenerate(*regenerateEvent)

	case "notify":
		if err := notifyCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.notify(*notifyNow)

	default:
		cli.printUsage()
		return errHelp
	}
}
