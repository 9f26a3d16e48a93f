package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/orderwatch/internal/bootstrap"
	"github.com/creamcroissant/orderwatch/internal/order"
	"github.com/creamcroissant/orderwatch/internal/orderclient"
)

const orderCommandTimeout = 30 * time.Second

var outputFormat string

func init() {
	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Query and manage orders on the order service",
	}
	orderCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")

	getCmd := &cobra.Command{
		Use:   "get <orderID>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := order.ValidateID(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[0])
			}
			return withOrderClient(func(ctx context.Context, c *orderclient.Client) error {
				o, err := c.GetOrderByID(ctx, id)
				if err != nil {
					return err
				}
				return printOrders(cmd.OutOrStdout(), o, []order.Order{*o})
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List orders visible to the configured token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrderClient(func(ctx context.Context, c *orderclient.Client) error {
				orders, err := c.ListOrders(ctx)
				if err != nil {
					return err
				}
				return printOrders(cmd.OutOrStdout(), orders, orders)
			})
		},
	}

	var create orderclient.CreateOrderRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Place an order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrderClient(func(ctx context.Context, c *orderclient.Client) error {
				o, err := c.CreateOrder(ctx, create)
				if err != nil {
					return err
				}
				return printOrders(cmd.OutOrStdout(), o, []order.Order{*o})
			})
		},
	}
	createCmd.Flags().StringVar(&create.EventID, "event", "", "event id (required)")
	createCmd.Flags().StringVar(&create.TicketTypeID, "ticket-type", "", "ticket type id")
	createCmd.Flags().IntVar(&create.Quantity, "quantity", 1, "number of tickets")
	createCmd.Flags().StringVar(&create.PromoCode, "promo", "", "promo code")
	_ = createCmd.MarkFlagRequired("event")

	updateCmd := &cobra.Command{
		Use:   "update-status <orderID> <status>",
		Short: "Change an order's payment status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := order.ValidateID(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[0])
			}
			status := order.ParsePaymentStatus(args[1])
			if !status.IsKnown() {
				return fmt.Errorf("unknown payment status %q", args[1])
			}
			return withOrderClient(func(ctx context.Context, c *orderclient.Client) error {
				o, err := c.UpdateOrderStatus(ctx, id, status)
				if err != nil {
					return err
				}
				return printOrders(cmd.OutOrStdout(), o, []order.Order{*o})
			})
		},
	}

	orderCmd.AddCommand(getCmd, listCmd, createCmd, updateCmd)
	rootCmd.AddCommand(orderCmd)
}

func withOrderClient(fn func(ctx context.Context, c *orderclient.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	infra, err := bootstrap.BuildInfrastructure(cfg, newLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), orderCommandTimeout)
	defer cancel()
	if err := fn(ctx, infra.Client); err != nil {
		if msg, ok := orderclient.MessageOf(err); ok {
			return fmt.Errorf("order service: %s", msg)
		}
		return err
	}
	return nil
}

// printOrders writes structured output of v, or a table of rows.
func printOrders(w io.Writer, v any, rows []order.Order) error {
	if done, err := writeStructured(w, outputFormat, v); done {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tEVENT\tQTY\tTOTAL\tCREATED")
	for _, o := range rows {
		event := "-"
		if o.Event != nil && o.Event.Title != "" {
			event = o.Event.Title
		}
		created := "-"
		if o.CreatedAt != nil {
			created = o.CreatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s %s\t%s\n", o.ID, o.PaymentStatus, event, o.Quantity, o.TotalAmount, o.Currency, created)
	}
	return tw.Flush()
}
