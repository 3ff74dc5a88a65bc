package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/coinsforstudy/coins/apps/api/echo"
	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
)

var (
	nowFunc = time.Now // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	db      *sqlx.DB
	svc     *economy.Service
	mailSvc core.EmailService
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version")
	_, _ = fmt.Fprintln(cli.out, "  createsession -name NAME [-demo] - create a session, optionally seeded with demo data")
	_, _ = fmt.Fprintln(cli.out, "  token -role ROLE -name NAME [-subject ID] - issue an API token")
	_, _ = fmt.Fprintln(cli.out, "  notifyexpiry -session ID -to EMAIL[,EMAIL...] [-within DAYS] - email the session's expiry report")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse parses args into fs, reporting help requests as errHelp.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createSessionCmd := cli.newFlagSet("createsession")
	createSessionName := createSessionCmd.String("name", "", "The session name.")
	createSessionDemo := createSessionCmd.Bool("demo", false, "Seed the session with the demo subjects, activities and rates.")

	tokenCmd := cli.newFlagSet("token")
	tokenRole := tokenCmd.String("role", "", "The bearer role: "+strings.Join(economy.AllRoles, ", ")+".")
	tokenName := tokenCmd.String("name", "", "The bearer name.")
	tokenSubject := tokenCmd.String("subject", "", "The bearer id (random by default).")

	notifyCmd := cli.newFlagSet("notifyexpiry")
	notifySession := notifyCmd.String("session", "", "The session id.")
	notifyTo := notifyCmd.String("to", "", "Comma separated recipient addresses.")
	notifyWithin := notifyCmd.Int("within", 7, "Only notify when coins expire within this many days.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "createsession":
		if err := parse(createSessionCmd, args[2:]); err != nil {
			return err
		}
		if strings.TrimSpace(*createSessionName) == "" {
			createSessionCmd.Usage()
			return errHelp
		}
		return cli.createSession(*createSessionName, *createSessionDemo)

	case "token":
		if err := parse(tokenCmd, args[2:]); err != nil {
			return err
		}
		if *tokenRole == "" || strings.TrimSpace(*tokenName) == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenRole, *tokenName, *tokenSubject)

	case "notifyexpiry":
		if err := parse(notifyCmd, args[2:]); err != nil {
			return err
		}
		if *notifySession == "" || *notifyTo == "" || *notifyWithin < 0 {
			notifyCmd.Usage()
			return errHelp
		}
		return cli.notifyExpiry(*notifySession, *notifyTo, *notifyWithin)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) createSession(name string, demo bool) error {
	rec, err := cli.svc.Create(context.Background(), economy.NewSessionRequest{Name: name, Demo: demo})
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	_, _ = fmt.Fprintln(cli.out, rec.ID)
	return nil
}

func (cli *commandLine) token(role, name, subject string) error {
	if subject == "" {
		subject = uuid.NewString()
	}
	claims := echoapi.NewClaims(cli.conf.AppName, subject, core.CleanString(name), role, cli.conf.Server.JWTExpirationDelta)
	token, err := echoapi.GenerateToken(claims, []byte(cli.conf.SecretKey))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cli.out, token)
	return nil
}

func (cli *commandLine) notifyExpiry(sessionID, to string, withinDays int) error {
	addrs, err := mail.ParseAddressList(to)
	if err != nil {
		return errors.Wrapf(err, "parsing recipients %q", to)
	}

	sess, _, err := cli.svc.Get(context.Background(), sessionID)
	if err != nil {
		return errors.Wrap(err, "loading session")
	}
	report := sess.ExpiryReport(nowFunc())
	if !report.ExpiringSoon(time.Duration(withinDays) * 24 * time.Hour) {
		_, _ = fmt.Fprintln(cli.out, "no coins expiring, nothing sent")
		return nil
	}

	recipients := make([]mail.Address, 0, len(addrs))
	for _, addr := range addrs {
		recipients = append(recipients, *addr)
	}
	cli.mailSvc.SendMessages(economy.NewExpiryNotice(report, cli.conf.AppName, recipients...)...)
	_, _ = fmt.Fprintf(cli.out, "expiry notice sent to %d recipient(s)\n", len(recipients))
	return nil
}
