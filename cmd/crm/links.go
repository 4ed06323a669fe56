package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crmcore/internal/app"
	"crmcore/internal/conformity"
)

func linkCmd() *cobra.Command {
	link := &cobra.Command{
		Use:   "link",
		Short: "Manage links (conformities) between typed entities",
	}
	link.AddCommand(linkAddCmd())
	link.AddCommand(linkQueryCmd("saved", "Ids of rel-type entities linked to an entity"))
	link.AddCommand(linkQueryCmd("related", "Ids of rel-type entities two hops away"))
	link.AddCommand(linkFilterCmd())
	link.AddCommand(linkEditCmd())
	link.AddCommand(linkChangeCmd())
	link.AddCommand(linkRemoveCmd())
	return link
}

type endpointFlags struct {
	mainType, mainID, relType string
}

func (f *endpointFlags) bind(cmd *cobra.Command, withRel bool) {
	cmd.Flags().StringVar(&f.mainType, "main-type", "", "main entity type")
	cmd.Flags().StringVar(&f.mainID, "main-id", "", "main entity id")
	_ = cmd.MarkFlagRequired("main-type")
	_ = cmd.MarkFlagRequired("main-id")
	if withRel {
		cmd.Flags().StringVar(&f.relType, "rel-type", "", "related entity type")
		_ = cmd.MarkFlagRequired("rel-type")
	}
}

func linkAddCmd() *cobra.Command {
	var f endpointFlags
	var relID, content string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add one link",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				c, err := rt.Engine.Conformity.Add(ctx, conformity.AddInput{
					MainType:   f.mainType,
					MainTypeID: f.mainID,
					RelType:    f.relType,
					RelTypeID:  relID,
					Content:    content,
					CreatedBy:  viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(c)
				}
				fmt.Printf("%s:%s <-> %s:%s (%s)\n", c.MainType, c.MainTypeID, c.RelType, c.RelTypeID, c.ID)
				return nil
			})
		},
	}
	f.bind(cmd, true)
	cmd.Flags().StringVar(&relID, "rel-id", "", "related entity id")
	cmd.Flags().StringVar(&content, "content", "", "free-form note")
	_ = cmd.MarkFlagRequired("rel-id")
	return cmd
}

func linkQueryCmd(use, short string) *cobra.Command {
	var f endpointFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				query := rt.Engine.Conformity.Saved
				if use == "related" {
					query = rt.Engine.Conformity.Related
				}
				ids, err := query(ctx, f.mainType, f.mainID, f.relType)
				if err != nil {
					return err
				}
				return printIDs(ids)
			})
		},
	}
	f.bind(cmd, true)
	return cmd
}

func linkFilterCmd() *cobra.Command {
	var mainType, relType string
	cmd := &cobra.Command{
		Use:   "filter <main-id>...",
		Short: "Union of linked rel-type ids over several entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				ids, err := rt.Engine.Conformity.Filter(ctx, mainType, args, relType)
				if err != nil {
					return err
				}
				return printIDs(ids)
			})
		},
	}
	cmd.Flags().StringVar(&mainType, "main-type", "", "main entity type")
	cmd.Flags().StringVar(&relType, "rel-type", "", "related entity type")
	_ = cmd.MarkFlagRequired("main-type")
	_ = cmd.MarkFlagRequired("rel-type")
	return cmd
}

func linkEditCmd() *cobra.Command {
	var f endpointFlags
	cmd := &cobra.Command{
		Use:   "edit [rel-id]...",
		Short: "Make the rel-type links of an entity exactly the given ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				entity, err := rt.Engine.EditLinks(ctx, f.mainType, f.mainID, f.relType, args, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSON(entity)
			})
		},
	}
	f.bind(cmd, true)
	return cmd
}

func linkChangeCmd() *cobra.Command {
	var typ, newID string
	cmd := &cobra.Command{
		Use:   "change <old-id>...",
		Short: "Repoint links from old ids of a type to a new id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				return rt.Engine.Conformity.Change(ctx, typ, args, newID)
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "entity type of the ids")
	cmd.Flags().StringVar(&newID, "new-id", "", "id the links should point to")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("new-id")
	return cmd
}

func linkRemoveCmd() *cobra.Command {
	var f endpointFlags
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Remove every link touching an entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				return rt.Engine.Conformity.Remove(ctx, f.mainType, f.mainID)
			})
		},
	}
	f.bind(cmd, false)
	return cmd
}
