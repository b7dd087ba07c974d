package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/plantilla/plantilla"
)

// displayCmd builds a one-shot command that runs action on a fresh session
// and prints the article.
func displayCmd(opts *rootOptions, use, short string, args cobra.PositionalArgs,
	action func(ctx context.Context, c *plantilla.Client, s *plantilla.Session, args []string) (plantilla.Article, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			a, err := action(cmd.Context(), c, plantilla.NewSession(), args)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), cmd.ErrOrStderr(), a)
		},
	}
}

func newHomeCmd(opts *rootOptions) *cobra.Command {
	return displayCmd(opts, "home", "Show the home message", cobra.NoArgs,
		func(ctx context.Context, c *plantilla.Client, s *plantilla.Session, _ []string) (plantilla.Article, error) {
			return c.Home(ctx, s)
		})
}

func newAcercaDeCmd(opts *rootOptions) *cobra.Command {
	return displayCmd(opts, "acercade", "Show the about page", cobra.NoArgs,
		func(ctx context.Context, c *plantilla.Client, s *plantilla.Session, _ []string) (plantilla.Article, error) {
			return c.AcercaDe(ctx, s)
		})
}

func newListarCmd(opts *rootOptions) *cobra.Command {
	var list plantilla.ListOptions
	cmd := displayCmd(opts, "listar", "List every persona", cobra.NoArgs,
		func(ctx context.Context, c *plantilla.Client, s *plantilla.Session, _ []string) (plantilla.Article, error) {
			return c.ListarPersonas(ctx, s, list)
		})
	cmd.Flags().StringVar(&list.SortField, "sort", "", "sort by field (nombre, apellidos, ranking...)")
	cmd.Flags().BoolVar(&list.Full, "full", false, "show every field")
	return cmd
}

func newUnaCmd(opts *rootOptions) *cobra.Command {
	return displayCmd(opts, "una <nombre>", "Show one persona", cobra.ExactArgs(1),
		func(ctx context.Context, c *plantilla.Client, s *plantilla.Session, args []string) (plantilla.Article, error) {
			return c.ListarUna(ctx, s, args[0])
		})
}
