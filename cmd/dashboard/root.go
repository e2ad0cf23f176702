package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lessonlink/internal/clients"
	"lessonlink/internal/config"
	"lessonlink/internal/dashboard"
	"lessonlink/internal/inventory"
	"lessonlink/internal/logger"
)

// app is the state shared by every subcommand once the root pre-run has
// logged in and loaded the catalog.
type app struct {
	username string
	asJSON   bool

	out       io.Writer
	log       *logrus.Logger
	api       *clients.InventoryClient
	dashboard *dashboard.Dashboard
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:           "dashboard",
		Short:         "Browse and manage the lesson book inventory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			return a.open(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.username, "user", "u", "", "mock user to act as (see 'dashboard users')")
	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print JSON even on a terminal")

	root.AddCommand(
		newUsersCmd(a),
		newListCmd(a),
		newSummaryCmd(a),
		newCheckoutCmd(a),
		newCheckinCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.log = logger.NewWithOutput(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if a.username == "" {
		return fmt.Errorf("--user is required")
	}
	session, err := dashboard.Login(a.username)
	if err != nil {
		return err
	}

	policy, err := policyFrom(cfg.ManagerBands)
	if err != nil {
		return err
	}

	a.api = clients.NewInventoryClient(cfg.APIBaseURL, cfg.APITimeout)
	catalog := dashboard.NewCatalog(a.api, a.log)
	if err := catalog.Refresh(cmd.Context()); err != nil {
		return err
	}

	a.dashboard = dashboard.New(session, catalog, policy)
	cmd.SetContext(dashboard.WithSession(cmd.Context(), session))
	return nil
}

func policyFrom(bands []string) (dashboard.Policy, error) {
	p := dashboard.Policy{}
	for _, s := range bands {
		b, err := inventory.ParseBand(s)
		if err != nil {
			return p, fmt.Errorf("MANAGER_BANDS: %w", err)
		}
		p.ManagerBands = append(p.ManagerBands, b)
	}
	return p, nil
}

// tabular reports whether output goes to a terminal and should be a table.
func (a *app) tabular() bool {
	if a.asJSON {
		return false
	}
	f, ok := a.out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseStatus(s string) (*inventory.Status, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	status, err := inventory.ParseStatus(s)
	if err != nil {
		return nil, err
	}
	return &status, nil
}
