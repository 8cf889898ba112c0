package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"puceats-api/apperr"
	"puceats-api/config"
	"puceats-api/ledger"
	"puceats-api/logging"
	"puceats-api/models"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

const (
	ledgerKey   = "ledger"
	dbKey       = "db"
	validityKey = "validity"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:  "puceats-tokens",
		Usage: "Issue and inspect PUC Eats invitation tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"PUCEATS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: "Database driver (sqlite, postgres); overrides the configuration",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "Database DSN; overrides the configuration",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Log database activity to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "Issue new tokens",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1, Usage: "How many tokens to issue"},
					&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Usage: "Validity in days (default from configuration)"},
				},
				Before: openLedger,
				Action: issueAction,
			},
			{
				Name:  "list",
				Usage: "List tokens, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "AVAILABLE, USED or EXPIRED"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ledger.DefaultListLimit},
				},
				Before: openLedger,
				Action: listAction,
			},
			{
				Name:      "check",
				Usage:     "Show one token and whether it can still be redeemed",
				ArgsUsage: "CODE",
				Before:    openLedger,
				Action:    checkAction,
			},
		},
		After: closeDB,
	}
}

// openLedger runs before each subcommand so that help output never needs a
// database.
func openLedger(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("driver"); v != "" {
		cfg.DB.Driver = v
	}
	if v := c.String("dsn"); v != "" {
		cfg.DB.DSN = v
	}

	log := logging.Discard()
	if c.Bool("verbose") {
		log = logging.New("puceats-tokens", logging.Config{Level: "debug", Output: c.App.ErrWriter})
	}
	db, err := config.OpenDB(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[dbKey] = db
	c.App.Metadata[validityKey] = cfg.Tokens.Validity
	c.App.Metadata[ledgerKey] = ledger.New(db, log)
	return nil
}

func closeDB(c *cli.Context) error {
	db, ok := c.App.Metadata[dbKey].(*gorm.DB)
	if !ok {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ledgerFrom(c *cli.Context) (*ledger.Ledger, error) {
	l, ok := c.App.Metadata[ledgerKey].(*ledger.Ledger)
	if !ok {
		return nil, errors.New("database not initialised")
	}
	return l, nil
}

func issueAction(c *cli.Context) error {
	l, err := ledgerFrom(c)
	if err != nil {
		return err
	}
	days := c.Int("days")
	if days <= 0 {
		days, _ = c.App.Metadata[validityKey].(int)
	}
	tokens, err := l.IssueBatch(c.Context, c.Int("count"), days)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "Issued %d token(s), valid for %d days:\n", len(tokens), days)
	for _, t := range tokens {
		fmt.Fprintf(w, "  %s  (expires %s)\n", t.Code, t.ExpiresAt.Format(time.DateOnly))
	}
	return nil
}

func listAction(c *cli.Context) error {
	l, err := ledgerFrom(c)
	if err != nil {
		return err
	}
	tokens, err := l.List(c.Context, ledger.ListFilter{
		Status: models.TokenStatus(c.String("status")),
		Limit:  c.Int("limit"),
	})
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		fmt.Fprintln(c.App.Writer, "No tokens found.")
		return nil
	}
	printTokens(c.App.Writer, l.Now(), tokens)
	return nil
}

func checkAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: puceats-tokens check CODE")
	}
	l, err := ledgerFrom(c)
	if err != nil {
		return err
	}
	tok, err := l.Get(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	printTokens(c.App.Writer, l.Now(), []models.Token{*tok})

	if err := l.Validate(c.Context, tok.Code); err != nil {
		var e *apperr.Error
		if errors.As(err, &e) {
			fmt.Fprintf(c.App.Writer, "\nNot redeemable: %s\n", e.Message)
			return nil
		}
		return err
	}
	fmt.Fprintln(c.App.Writer, "\nRedeemable.")
	return nil
}

func printTokens(out io.Writer, now time.Time, tokens []models.Token) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tSTATUS\tCREATED\tEXPIRES\tUSED BY\tUSED AT")
	for _, t := range tokens {
		usedBy, usedAt := "-", "-"
		if t.UsedBy != nil {
			usedBy = t.UsedBy.Username
		}
		if t.UsedAt != nil {
			usedAt = t.UsedAt.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Code, t.StatusAt(now),
			t.CreatedAt.Format(time.DateOnly), t.ExpiresAt.Format(time.DateOnly),
			usedBy, usedAt)
	}
	tw.Flush()
}
