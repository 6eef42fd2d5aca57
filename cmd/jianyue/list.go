package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/justyntemme/jianyue/pkg/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Output formats of the list command
const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

func newListCmd(cfgFile *string) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the books in the library",
		Example: `  jianyue list
  jianyue list -o yaml`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			switch format {
			case formatText, formatYAML, formatJSON:
			default:
				return fmt.Errorf("unknown output format %q", format)
			}

			e, err := openEnv(*cfgFile)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, e.Close()) }()

			books, err := e.client.FetchManifest(cmd.Context())
			if err != nil {
				return err
			}
			return writeBooks(cmd.OutOrStdout(), books, format)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatText, "output format: text, yaml or json")
	return cmd
}

func writeBooks(w io.Writer, books []models.BookRef, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(books); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(books)
	}

	if len(books) == 0 {
		_, err := fmt.Fprintln(w, "No books yet")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tTITLE\tAUTHOR\tFILE")
	for _, b := range books {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Slug, b.DisplayTitle(), b.DisplayAuthor(), b.File)
	}
	return tw.Flush()
}
