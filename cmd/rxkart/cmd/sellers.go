package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	rxkart "github.com/rxkart/rxkart-go"
)

var sellersCmd = &cobra.Command{
	Use:   "sellers",
	Short: "Run the seller approval queue (admins only)",
}

var sellersPendingCmd = &cobra.Command{
	Use:   "pending [region]",
	Short: "List sellers awaiting approval",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSellersPending,
}

var sellersApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending seller",
	Args:  cobra.ExactArgs(1),
	RunE:  makeResolveRun((*rxkart.SellerService).Approve, "approved"),
}

var sellersRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending seller",
	Args:  cobra.ExactArgs(1),
	RunE:  makeResolveRun((*rxkart.SellerService).Reject, "rejected"),
}

func init() {
	sellersCmd.AddCommand(sellersPendingCmd)
	sellersCmd.AddCommand(sellersApproveCmd)
	sellersCmd.AddCommand(sellersRejectCmd)
	rootCmd.AddCommand(sellersCmd)
}

func runSellersPending(cmd *cobra.Command, args []string) (err error) {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var res rxkart.Result[[]rxkart.Seller]
	if len(args) == 1 {
		res, err = c.Sellers.PendingByRegion(cmd.Context(), args[0])
	} else {
		res, err = c.Sellers.Pending(cmd.Context())
	}
	if err != nil {
		return err
	}

	printStaleNotice(res.Stale)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTORE\tREGION\tSTATUS")
	for _, s := range res.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.StoreName, s.Region, s.Status)
	}

	return w.Flush()
}

func makeResolveRun(resolve func(*rxkart.SellerService, context.Context, *rxkart.Seller) error, verb string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer func() {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()

		res, err := c.Sellers.Pending(cmd.Context())
		if err != nil {
			return err
		}

		for i := range res.Data {
			if res.Data[i].ID != args[0] {
				continue
			}

			if err := resolve(c.Sellers, cmd.Context(), &res.Data[i]); err != nil {
				return err
			}

			fmt.Printf("seller %s %s\n", args[0], verb)
			return nil
		}

		return fmt.Errorf("seller %s is not in the pending queue", args[0])
	}
}
