package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crmcore/internal/app"
	"crmcore/internal/engine"
)

func contactCmd() *cobra.Command {
	contact := &cobra.Command{
		Use:   "contact",
		Short: "Manage customers and companies",
	}
	contact.PersistentFlags().String("type", "customer", "contact type")
	contact.AddCommand(contactAddCmd())
	contact.AddCommand(contactShowCmd())
	contact.AddCommand(contactMergeCmd())
	return contact
}

func contactAddCmd() *cobra.Command {
	var opts engine.ContactCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Type = typeFlag(cmd)
			opts.ActorID = viper.GetString("actor-id")
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				c, err := rt.Engine.CreateContact(ctx, opts)
				if err != nil {
					return err
				}
				return printContact(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "contact id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "name")
	cmd.Flags().StringSliceVar(&opts.Emails, "email", nil, "emails")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func contactShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				c, err := rt.Engine.GetContact(ctx, typeFlag(cmd), args[0])
				if err != nil {
					return err
				}
				return printContact(c)
			})
		},
	}
}

func contactMergeCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "merge <id> <id>...",
		Short: "Merge contacts into a new record and move their links to it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				c, err := rt.Engine.MergeContacts(ctx, typeFlag(cmd), args, name, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printContact(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the merged contact (default: first contact's)")
	return cmd
}
