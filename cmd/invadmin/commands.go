package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-inventory-admin/crud"
	"github.com/jrsteele09/go-inventory-admin/internal/config"
	apperrors "github.com/jrsteele09/go-inventory-admin/internal/errors"
	"github.com/jrsteele09/go-inventory-admin/inventory"
	"github.com/jrsteele09/go-inventory-admin/oauthmodel"
	"github.com/jrsteele09/go-inventory-admin/router"
	"github.com/jrsteele09/go-inventory-admin/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type cli struct {
	configPath  string
	output      string
	showMetrics bool

	cfg config.Config
	app *App
}

func rootCmd(out io.Writer) *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "invadmin",
		Short: "Inventory back-office client",
		Long: `invadmin talks to the inventory and invoicing REST API.

It logs in with an email and password, keeps the session between runs
and refreshes the access token when the API rejects it.`,
		SilenceUsage:       true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
		RunE: func(cmd *cobra.Command, _ []string) error {
			displayAppname(cmd.OutOrStdout(), c.cfg.GetAppName())
			return cmd.Help()
		},
	}
	cmd.SetOut(out)

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file path (YAML); environment variables are used when empty")
	cmd.PersistentFlags().StringVarP(&c.output, "output", "o", outputTable, "Output format: table, json or yaml")
	cmd.PersistentFlags().BoolVar(&c.showMetrics, "metrics", false, "Print client request counters to stderr on exit")

	cmd.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.navCmd(),
		resourceCmd(c, resourceSpec[inventory.Product]{
			name:  "products",
			route: router.RouteProducts,
			open:  inventory.NewProducts,
			columns: []column[inventory.Product]{
				col("ID", func(p inventory.Product) string { return p.EntityID }),
				col("NAME", func(p inventory.Product) string { return p.Name }),
				col("CATEGORY", func(p inventory.Product) string { return p.CategoryName }),
				col("VENDOR", func(p inventory.Product) string { return p.VendorID }),
				col("IMPORT", func(p inventory.Product) string { return money(p.ImportPrice) }),
				col("SALE", func(p inventory.Product) string { return money(p.SalePrice) }),
				col("VAT", func(p inventory.Product) string { return number(p.VAT) }),
				col("AMOUNT", func(p inventory.Product) string { return number(p.Amount) }),
				col("EXPIRY", func(p inventory.Product) string { return p.EarliestExpiry }),
			},
		}),
		resourceCmd(c, resourceSpec[inventory.Vendor]{
			name:  "vendors",
			route: router.RouteVendors,
			open:  inventory.NewVendors,
			columns: []column[inventory.Vendor]{
				col("ID", func(v inventory.Vendor) string { return v.EntityID }),
				col("NAME", func(v inventory.Vendor) string { return v.Name }),
			},
		}),
		resourceCmd(c, resourceSpec[inventory.Invoice]{
			name:  "invoices",
			route: router.RouteInvoices,
			open:  inventory.NewInvoices,
			columns: []column[inventory.Invoice]{
				col("ID", func(i inventory.Invoice) string { return i.EntityID }),
				col("CREATED", func(i inventory.Invoice) string { return i.CreatedAt }),
				col("UPDATED", func(i inventory.Invoice) string { return i.UpdatedAt }),
				col("TOTAL", func(i inventory.Invoice) string { return money(i.Total) }),
				col("TAX", func(i inventory.Invoice) string { return money(i.Tax) }),
			},
		}),
		c.statsCmd(),
	)
	return cmd
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if err := validOutput(c.output); err != nil {
		return err
	}
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	setupLogging(cfg, cmd.ErrOrStderr())

	if !cmd.HasParent() {
		return nil
	}
	app, err := NewApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

func (c *cli) teardown(cmd *cobra.Command, _ []string) error {
	if c.app == nil {
		return nil
	}
	if c.showMetrics {
		if err := printMetrics(cmd.ErrOrStderr(), c.app.registry); err != nil {
			return err
		}
	}
	return c.app.Close()
}

var userColumns = []column[users.User]{
	col("ID", func(u users.User) string { return u.ID }),
	col("USERNAME", func(u users.User) string { return u.Username }),
	col("ROLES", func(u users.User) string { return u.Roles }),
}

func (c *cli) loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds := oauthmodel.Credentials{Email: email, Password: readPassword(password)}
			if err := c.app.session.Login(cmd.Context(), creds); err != nil {
				if errors.Is(err, apperrors.ErrInvalidCredentials) {
					return err
				}
				return errors.New(c.app.session.Status().LastError)
			}
			return renderOne(cmd.OutOrStdout(), c.output, *c.app.session.User(), userColumns)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (defaults to $INVADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := c.app.session.Initialize(ctx); err != nil {
				return err
			}
			if err := c.app.session.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Open(cmd.Context(), router.RouteDashboard); err != nil {
				return err
			}
			return renderOne(cmd.OutOrStdout(), c.output, *c.app.session.User(), userColumns)
		},
	}
}

func (c *cli) navCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nav <path>",
		Short: "Resolve a path through the route guard and show where it lands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.router.PushPath(cmd.Context(), args[0]); err != nil {
				return err
			}
			current := c.app.router.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", current.Name, current.Path)
			return nil
		},
	}
}

// resourceSpec describes a CRUD collection exposed as a command group.
type resourceSpec[T any] struct {
	name    string
	route   string
	open    func(crud.Requester, ...crud.Option) *crud.Resource[T]
	columns []column[T]
}

func resourceCmd[T any](c *cli, spec resourceSpec[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.name,
		Short: "List and edit " + spec.name,
	}

	// opened navigates to the collection's view before touching the API
	opened := func(cmd *cobra.Command) (*crud.Resource[T], error) {
		if err := c.app.Open(cmd.Context(), spec.route); err != nil {
			return nil, err
		}
		return spec.open(c.app.api), nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List " + spec.name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := opened(cmd)
			if err != nil {
				return err
			}
			items, err := res.FetchAll(cmd.Context())
			if err != nil {
				return errors.New(res.Err())
			}
			return render(cmd.OutOrStdout(), c.output, items, spec.columns)
		},
	}

	var createData string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create one of " + spec.name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := parseObject(createData)
			if err != nil {
				return err
			}
			res, err := opened(cmd)
			if err != nil {
				return err
			}
			created, err := res.Create(cmd.Context(), body)
			if err != nil {
				return errors.New(res.Err())
			}
			return renderOne(cmd.OutOrStdout(), c.output, created, spec.columns)
		},
	}
	create.Flags().StringVarP(&createData, "data", "d", "", "JSON object with the new item's fields")
	_ = create.MarkFlagRequired("data")

	var patchData string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of one of " + spec.name,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseObject(patchData)
			if err != nil {
				return err
			}
			res, err := opened(cmd)
			if err != nil {
				return err
			}
			if err := res.Update(cmd.Context(), args[0], patch); err != nil {
				return errors.New(res.Err())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
			return nil
		},
	}
	update.Flags().StringVarP(&patchData, "data", "d", "", "JSON object with the fields to change")
	_ = update.MarkFlagRequired("data")

	remove := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one of " + spec.name,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opened(cmd)
			if err != nil {
				return err
			}
			if err := res.Remove(cmd.Context(), args[0]); err != nil {
				return errors.New(res.Err())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, update, remove)
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Revenue statistics (admin only)",
	}
	cmd.AddCommand(
		statCmd(c, "categories", inventory.NewCategoryRevenue, []column[inventory.CategoryRevenueStat]{
			col("CATEGORY", func(s inventory.CategoryRevenueStat) string { return s.Name }),
			col("REVENUE", func(s inventory.CategoryRevenueStat) string { return money(s.TotalRevenue) }),
		}),
		statCmd(c, "vendors", inventory.NewVendorRevenue, []column[inventory.VendorRevenueStat]{
			col("ID", func(s inventory.VendorRevenueStat) string { return s.ID }),
			col("VENDOR", func(s inventory.VendorRevenueStat) string { return s.Name }),
			col("REVENUE", func(s inventory.VendorRevenueStat) string { return money(s.TotalRevenue) }),
		}),
		statCmd(c, "products", inventory.NewProductRevenue, []column[inventory.ProductRevenueStat]{
			col("ID", func(s inventory.ProductRevenueStat) string { return s.ID }),
			col("PRODUCT", func(s inventory.ProductRevenueStat) string { return s.Name }),
			col("VENDOR", func(s inventory.ProductRevenueStat) string { return s.VendorName }),
			col("CATEGORY", func(s inventory.ProductRevenueStat) string { return s.CategoryName }),
			col("SOLD", func(s inventory.ProductRevenueStat) string { return number(s.Amount) }),
			col("REVENUE", func(s inventory.ProductRevenueStat) string { return money(s.TotalRevenue) }),
		}),
	)
	return cmd
}

func statCmd[T any](c *cli, name string, open func(crud.Requester, ...crud.Option) *crud.Resource[T], columns []column[T]) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: "Revenue by " + strings.TrimSuffix(name, "s"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Open(cmd.Context(), router.RouteStatistics); err != nil {
				return err
			}
			res := open(c.app.api)
			items, err := res.FetchAll(cmd.Context())
			if err != nil {
				return errors.New(res.Err())
			}
			return render(cmd.OutOrStdout(), c.output, items, columns)
		},
	}
}

func parseObject(data string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: --data must be a JSON object", apperrors.ErrInvalidRequest)
	}
	return obj, nil
}

func printMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			fmt.Fprintf(w, "%s{%s} %v\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}
