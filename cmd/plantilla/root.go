package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/plantilla/plantilla"
)

type rootOptions struct {
	gateway string
	prefix  string
	format  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "plantilla",
		Short:         "MS Plantilla front end",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.format {
			case "html", "markdown":
				return nil
			}
			return fmt.Errorf("unknown --format %q (html or markdown)", opts.format)
		},
	}
	root.PersistentFlags().StringVar(&opts.gateway, "gateway", env("PLANTILLA_GATEWAY", "http://localhost:8001"), "API gateway base URL")
	root.PersistentFlags().StringVar(&opts.prefix, "prefix", env("PLANTILLA_PREFIX", plantilla.DefaultPrefix), "gateway route of MS Plantilla")
	root.PersistentFlags().StringVar(&opts.format, "format", "markdown", "output format: html or markdown")

	root.AddCommand(
		newHomeCmd(opts),
		newAcercaDeCmd(opts),
		newListarCmd(opts),
		newUnaCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
	)
	return root
}

func (o *rootOptions) client() (*plantilla.Client, error) {
	return plantilla.NewClient(o.gateway, plantilla.WithPrefix(o.prefix), plantilla.WithLogger(slog.Default()))
}

// print writes the article in the selected format. The alert goes to errOut
// so that piping stdout keeps only the content.
func (o *rootOptions) print(out, errOut io.Writer, a plantilla.Article) error {
	if a.Alert != "" {
		fmt.Fprintln(errOut, a.Alert)
	}
	if o.format == "html" {
		_, err := fmt.Fprintf(out, "<h1>%s</h1>\n%s", a.Title, a.Body)
		return err
	}
	md, err := plantilla.Markdown(a)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, md)
	return err
}
