package commands

import (
	"context"
	"fmt"

	"github.com/conduit-lang/facetmodel/examples/orders"
	"github.com/conduit-lang/facetmodel/internal/cli/ui"
	"github.com/conduit-lang/facetmodel/internal/runtime/memento"
	"github.com/conduit-lang/facetmodel/internal/runtime/mementostore"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	mementoKey      string
	mementoRecreate bool
)

// NewMementoCommand creates the memento command group
func NewMementoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memento",
		Short: "Capture and inspect object mementos",
		Long: `Capture mementos of object graphs and inspect the ones held by the
configured store (memento.store: memory, sqlite3, pgx or redis).

The memory store lives only as long as the command, so use a SQL or redis
store to keep mementos between runs.`,
		Example: `  # Capture the sample customer graph under a fixed key
  facetmodel memento capture --key acme

  # Dump a stored memento and rebuild its object graph
  facetmodel memento show acme --recreate

  # List and delete stored mementos
  facetmodel memento list
  facetmodel memento delete acme`,
	}

	cmd.AddCommand(newMementoCaptureCommand())
	cmd.AddCommand(newMementoShowCommand())
	cmd.AddCommand(newMementoListCommand())
	cmd.AddCommand(newMementoDeleteCommand())

	return cmd
}

func newMementoCaptureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the sample customer graph",
		RunE:  runMementoCapture,
	}
	cmd.Flags().StringVar(&mementoKey, "key", "", "Store under this key instead of a generated one")
	return cmd
}

func newMementoShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Dump a stored memento",
		Args:  cobra.ExactArgs(1),
		RunE:  runMementoShow,
	}
	cmd.Flags().BoolVar(&mementoRecreate, "recreate", false, "Recreate the object graph and print its titles")
	return cmd
}

func newMementoListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored memento keys",
		RunE:  runMementoList,
	}
}

func newMementoDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a stored memento",
		Args:  cobra.ExactArgs(1),
		RunE:  runMementoDelete,
	}
}

// withRepository runs fn with an initialized environment and a repository over the configured
// store, closing both afterwards.
func withRepository(cmd *cobra.Command, fn func(ctx context.Context, env *environment, repo *mementostore.Repository) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := newEnvironment(cfg)
	if err != nil {
		return err
	}
	defer env.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := mementostore.Open(ctx, cfg, env.logger)
	if err != nil {
		return fmt.Errorf("failed to open memento store: %w", err)
	}
	defer store.Close()

	return fn(ctx, env, mementostore.NewRepository(store, env.runtime(), env.logger))
}

// sampleCustomer builds the graph captured by "memento capture"
func sampleCustomer() *orders.Customer {
	acme := orders.NewCustomer("Acme", "orders@acme.test")
	anvil := orders.NewProduct("ANVIL", 4999)
	rocket := orders.NewProduct("ROCKET", 129900)
	acme.PlaceOrder(anvil, 2)
	placed := acme.PlaceOrder(rocket, 1)
	_ = placed.Submit()
	return acme
}

func runMementoCapture(cmd *cobra.Command, args []string) error {
	return withRepository(cmd, func(ctx context.Context, env *environment, repo *mementostore.Repository) error {
		adapter, err := env.session.AdapterFor(sampleCustomer())
		if err != nil {
			return err
		}
		m, err := memento.New(env.runtime(), adapter)
		if err != nil {
			return fmt.Errorf("failed to capture memento: %w", err)
		}

		key := mementoKey
		if key == "" {
			key, err = repo.Save(ctx, m)
		} else {
			err = repo.SaveAs(ctx, key, m)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		success := color.New(color.FgGreen, color.Bold)
		if noColor {
			success.DisableColor()
		}
		success.Fprintf(out, "✓ Captured %s as %s\n", m, key)
		return m.Debug(out)
	})
}

func runMementoShow(cmd *cobra.Command, args []string) error {
	return withRepository(cmd, func(ctx context.Context, env *environment, repo *mementostore.Repository) error {
		m, err := repo.Load(ctx, args[0])
		if err != nil {
			if mementostore.IsNotFound(err) {
				keys, _ := repo.Keys(ctx)
				ui.WriteNotFound(cmd.ErrOrStderr(), ui.NotFound{
					Kind:       "memento",
					Name:       args[0],
					Candidates: keys,
					Help:       "See stored mementos: facetmodel memento list",
				}, noColor)
			}
			return err
		}

		out := cmd.OutOrStdout()
		ui.Header(out, m.String(), noColor)
		if err := m.Debug(out); err != nil {
			return err
		}
		if !mementoRecreate {
			return nil
		}

		adapter, err := m.RecreateObject()
		if err != nil {
			return fmt.Errorf("failed to recreate object: %w", err)
		}
		if adapter == nil {
			fmt.Fprintln(out, "\nempty memento")
			return nil
		}
		fmt.Fprintln(out)
		kv := ui.NewKeyValueTable(out, noColor)
		for _, recreated := range env.session.Adapters() {
			s := recreated.Specification()
			if s == nil || s.IsCollection() || s.IsValue() {
				continue
			}
			kv.AddRow(s.ShortName()+" "+recreated.Oid().String(), s.Title(recreated))
		}
		kv.Render()
		return nil
	})
}

func runMementoList(cmd *cobra.Command, args []string) error {
	return withRepository(cmd, func(ctx context.Context, env *environment, repo *mementostore.Repository) error {
		keys, err := repo.Keys(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(keys) == 0 {
			fmt.Fprintln(out, "no mementos stored")
			return nil
		}
		for _, key := range keys {
			fmt.Fprintln(out, key)
		}
		return nil
	})
}

func runMementoDelete(cmd *cobra.Command, args []string) error {
	return withRepository(cmd, func(ctx context.Context, env *environment, repo *mementostore.Repository) error {
		if err := repo.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	})
}
