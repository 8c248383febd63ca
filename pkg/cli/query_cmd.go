package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"fireant/dataset"
	"fireant/internal/app"
	"fireant/internal/request"
	"fireant/query"
)

// withDataset opens the app, looks up the named dataset and closes the app
// after fn returns.
func withDataset(cmd *cobra.Command, g *globals, name string, fn func(*dataset.DataSet) error) (err error) {
	a, err := g.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	ds, ok := a.Catalog.Get(name)
	if !ok {
		return fmt.Errorf("dataset %q not found (have: %s)", name, strings.Join(a.Catalog.Names(), ", "))
	}
	return fn(ds)
}

func newDatasetsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets and blends of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck
			return printDatasets(cmd.OutOrStdout(), g.output, a)
		},
	}
}

func printDatasets(w io.Writer, output string, a *app.App) error {
	names := a.Catalog.Names()
	sort.Strings(names)
	type entry struct {
		Name    string `json:"name"`
		Blended bool   `json:"blended"`
		Fields  int    `json:"fields"`
	}
	entries := make([]entry, 0, len(names))
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		ds, _ := a.Catalog.Get(name)
		e := entry{Name: name, Blended: ds.IsBlended(), Fields: len(ds.Fields())}
		entries = append(entries, e)
		rows = append(rows, []string{e.Name, fmt.Sprint(e.Blended), fmt.Sprint(e.Fields)})
	}
	if effectiveFormat(output, w) == outputJSON {
		return printJSON(w, entries)
	}
	printTable(w, []string{"NAME", "BLENDED", "FIELDS"}, rows)
	return nil
}

func newFieldsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "fields <dataset>",
		Short: "List the fields of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDataset(cmd, g, args[0], func(ds *dataset.DataSet) error {
				w := cmd.OutOrStdout()
				type entry struct {
					Alias     string `json:"alias"`
					Label     string `json:"label"`
					Type      string `json:"type"`
					Aggregate bool   `json:"aggregate"`
				}
				entries := make([]entry, 0, len(ds.Fields()))
				rows := make([][]string, 0, len(ds.Fields()))
				for _, f := range ds.Fields() {
					e := entry{Alias: f.Alias, Label: f.Label, Type: f.DataType.String(), Aggregate: f.IsAggregate()}
					entries = append(entries, e)
					rows = append(rows, []string{e.Alias, e.Label, e.Type, fmt.Sprint(e.Aggregate)})
				}
				if effectiveFormat(g.output, w) == outputJSON {
					return printJSON(w, entries)
				}
				printTable(w, []string{"ALIAS", "LABEL", "TYPE", "AGGREGATE"}, rows)
				return nil
			})
		},
	}
}

// readRequest reads a request from path, or from stdin when path is "-".
func readRequest(cmd *cobra.Command, path string) (*request.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // user-specified request file
	}
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return request.Decode(data)
}

func newSQLCmd(g *globals) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "sql <dataset>",
		Short: "Print the SQL a request plans to, without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd, file)
			if err != nil {
				return err
			}
			return withDataset(cmd, g, args[0], func(ds *dataset.DataSet) error {
				b, err := req.Builder(ds)
				if err != nil {
					return err
				}
				stmts, err := b.SQL()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if g.output == outputJSON {
					return printJSON(w, map[string][]string{"sql": stmts})
				}
				for _, s := range stmts {
					if _, err := fmt.Fprintf(w, "%s;\n", s); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Request file (YAML or JSON); - reads stdin")
	return cmd
}

func newFetchCmd(g *globals) *cobra.Command {
	var (
		file string
		hint string
	)
	cmd := &cobra.Command{
		Use:   "fetch <dataset>",
		Short: "Run a request and print its widgets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd, file)
			if err != nil {
				return err
			}
			return withDataset(cmd, g, args[0], func(ds *dataset.DataSet) error {
				b, err := req.Builder(ds)
				if err != nil {
					return err
				}
				res, err := b.Fetch(cmd.Context(), hint)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if effectiveFormat(g.output, w) == outputJSON {
					return printJSON(w, res)
				}
				for _, d := range res.Data {
					if err := printWidget(w, d); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Request file (YAML or JSON); - reads stdin")
	cmd.Flags().StringVar(&hint, "hint", "", "Query hint label, on dialects that support it")
	return cmd
}

func newChoicesCmd(g *globals) *cobra.Command {
	var (
		filters []string
		hint    string
	)
	cmd := &cobra.Command{
		Use:   "choices <dataset> <field>",
		Short: "List the distinct values of a dimension",
		Example: `  fireant choices politics political_party
  fireant choices politics district_name --filter political_party:in:d,r`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDataset(cmd, g, args[0], func(ds *dataset.DataSet) error {
				f, ok := ds.Field(args[1])
				if !ok {
					return fmt.Errorf("dataset %q has no field %q", ds.Name(), args[1])
				}
				cb := query.Choices(ds, f)
				for _, raw := range filters {
					spec, err := request.ParseFilter(raw)
					if err != nil {
						return err
					}
					flt, err := spec.Build(ds)
					if err != nil {
						return err
					}
					cb = cb.Filter(flt)
				}
				choices, err := cb.Fetch(cmd.Context(), hint)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if effectiveFormat(g.output, w) == outputJSON {
					return printJSON(w, choices)
				}
				rows := make([][]string, len(choices))
				for i, c := range choices {
					rows[i] = []string{fmt.Sprint(c.Value), c.Label}
				}
				printTable(w, []string{"VALUE", "LABEL"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter as alias:op[:v1,v2] (repeatable)")
	cmd.Flags().StringVar(&hint, "hint", "", "Query hint label, on dialects that support it")
	return cmd
}

func newLatestCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "latest <dataset> <field>...",
		Short: "Print the latest value of date dimensions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDataset(cmd, g, args[0], func(ds *dataset.DataSet) error {
				fields := make([]*dataset.Field, 0, len(args)-1)
				for _, alias := range args[1:] {
					f, ok := ds.Field(alias)
					if !ok {
						return fmt.Errorf("dataset %q has no field %q", ds.Name(), alias)
					}
					fields = append(fields, f)
				}
				latest, err := query.Latest(ds, fields...).Fetch(cmd.Context())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if effectiveFormat(g.output, w) == outputJSON {
					return printJSON(w, latest)
				}
				rows := make([][]string, len(fields))
				for i, f := range fields {
					rows[i] = []string{f.Alias, fmt.Sprint(latest[f.Alias])}
				}
				printTable(w, []string{"FIELD", "LATEST"}, rows)
				return nil
			})
		},
	}
}
