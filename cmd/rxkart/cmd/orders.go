package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	rxkart "github.com/rxkart/rxkart-go"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "View orders and move them through fulfillment",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your orders (all orders for admins)",
	Args:  cobra.NoArgs,
	RunE:  runOrdersList,
}

var ordersStatusCmd = &cobra.Command{
	Use:   "status <id> <status> [description]",
	Short: "Transition an order's status",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runOrdersStatus,
}

func init() {
	ordersCmd.AddCommand(ordersListCmd)
	ordersCmd.AddCommand(ordersStatusCmd)
	rootCmd.AddCommand(ordersCmd)
}

func runOrdersList(cmd *cobra.Command, args []string) (err error) {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sess := c.Session()
	if sess == nil {
		return rxkart.ErrNotLoggedIn
	}

	var res rxkart.Result[[]rxkart.Order]
	switch sess.Role {
	case rxkart.RoleCustomer:
		res, err = c.Orders.ByUser(cmd.Context(), sess.UserID)
	case rxkart.RoleSeller:
		res, err = c.Orders.BySeller(cmd.Context(), sess.UserID)
	case rxkart.RoleRegionalAdmin:
		res, err = c.Orders.ByRegion(cmd.Context(), sess.Region)
	default:
		res, err = c.Orders.List(cmd.Context())
	}
	if err != nil {
		return err
	}

	printStaleNotice(res.Stale)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTOTAL\tPAYMENT\tITEMS")
	for _, o := range res.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", o.ID, o.Status, o.Total.StringFixed(2), o.PaymentMode, len(o.Items))
	}

	return w.Flush()
}

func runOrdersStatus(cmd *cobra.Command, args []string) (err error) {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	res, err := c.Orders.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	description := ""
	if len(args) == 3 {
		description = args[2]
	}

	updated, err := c.Orders.TransitionStatus(cmd.Context(), res.Data, rxkart.OrderStatus(args[1]), description)
	if err != nil {
		return err
	}

	fmt.Printf("order %s is now %s\n", updated.ID, updated.Status)
	return nil
}
