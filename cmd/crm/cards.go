package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crmcore/internal/app"
	"crmcore/internal/domain"
	"crmcore/internal/engine"
)

func cardCmd() *cobra.Command {
	card := &cobra.Command{
		Use:   "card",
		Short: "Manage pipeline cards",
	}
	card.PersistentFlags().String("type", "deal", "card type (see crm status)")
	card.AddCommand(cardAddCmd())
	card.AddCommand(cardListCmd())
	card.AddCommand(cardMoveCmd())
	card.AddCommand(cardOrderCmd())
	card.AddCommand(cardReorderCmd())
	card.AddCommand(cardArchiveCmd())
	card.AddCommand(cardRemoveCmd())
	return card
}

func typeFlag(cmd *cobra.Command) string {
	typ, _ := cmd.Flags().GetString("type")
	return typ
}

func cardAddCmd() *cobra.Command {
	var opts engine.CardCreateOptions
	var links []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a card",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseLinks(links)
			if err != nil {
				return err
			}
			opts.Type = typeFlag(cmd)
			opts.Links = parsed
			opts.ActorID = viper.GetString("actor-id")
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				c, err := rt.Engine.CreateCard(ctx, opts)
				if err != nil {
					return err
				}
				return printCard(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "card id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "card name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.StageID, "stage", "", "stage id")
	cmd.Flags().StringVar(&opts.AboveItemID, "after", "", "place the card right after this card")
	cmd.Flags().StringSliceVar(&opts.AssignedTo, "assign", nil, "assigned user ids")
	cmd.Flags().StringArrayVar(&links, "link", nil, "link as type=id1,id2 (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("stage")
	return cmd
}

func cardListCmd() *cobra.Command {
	var stage string
	var archived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the cards of a stage in board order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				cards, err := rt.Engine.ListCards(ctx, typeFlag(cmd), stage, archived)
				if err != nil {
					return err
				}
				return printCards(cards)
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "stage id")
	cmd.Flags().BoolVar(&archived, "archived", false, "include archived cards")
	_ = cmd.MarkFlagRequired("stage")
	return cmd
}

func cardMoveCmd() *cobra.Command {
	var stage, after string
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a card to the top of a stage or right after another card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				c, err := rt.Engine.MoveCard(ctx, engine.CardMoveOptions{
					Type:        typeFlag(cmd),
					ID:          args[0],
					StageID:     stage,
					AboveItemID: after,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printCard(c)
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "destination stage (default: current)")
	cmd.Flags().StringVar(&after, "after", "", "card to follow")
	return cmd
}

func cardOrderCmd() *cobra.Command {
	var stage, after string
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Preview the order a card dropped after --after would get",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				order, err := rt.Engine.ComputeInsertOrder(ctx, typeFlag(cmd), stage, after)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]float64{"order": order})
				}
				fmt.Println(strconv.FormatFloat(order, 'f', -1, 64))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "stage id")
	cmd.Flags().StringVar(&after, "after", "", "card to follow")
	_ = cmd.MarkFlagRequired("stage")
	return cmd
}

func cardReorderCmd() *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "reorder <id=order>...",
		Short: "Write explicit orders for cards",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseOrderItems(args)
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				cards, err := rt.Engine.ReorderCards(ctx, typeFlag(cmd), stage, items)
				if err != nil {
					return err
				}
				return printCards(cards)
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "only read back cards of this stage")
	return cmd
}

func cardArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				c, err := rt.Engine.ArchiveCard(ctx, typeFlag(cmd), args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printCard(c)
			})
		},
	}
}

func cardRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a card and its links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				return rt.Engine.RemoveCard(ctx, typeFlag(cmd), args[0], viper.GetString("actor-id"))
			})
		},
	}
}

// parseLinks turns "customer=c1,c2" flags into a relType -> ids map.
func parseLinks(in []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, raw := range in {
		typ, ids, ok := strings.Cut(raw, "=")
		if !ok || typ == "" {
			return nil, fmt.Errorf("invalid --link %q, want type=id1,id2", raw)
		}
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out[typ] = append(out[typ], id)
			}
		}
	}
	return out, nil
}

func parseOrderItems(args []string) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(args))
	for _, raw := range args {
		id, value, ok := strings.Cut(raw, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid item %q, want id=order", raw)
		}
		order, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid order for %s: %w", id, err)
		}
		items = append(items, domain.OrderItem{ID: id, Order: order})
	}
	return items, nil
}
