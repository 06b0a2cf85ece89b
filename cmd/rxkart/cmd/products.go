package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	rxkart "github.com/rxkart/rxkart-go"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Browse and manage the medicine catalog",
}

var productsListCmd = &cobra.Command{
	Use:   "list [category]",
	Short: "List products, optionally by category",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProductsList,
}

var productsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsGet,
}

var productsAddCmd = &cobra.Command{
	Use:   "add <name> <category> <price> <stock>",
	Short: "List a new product (sellers only)",
	Args:  cobra.ExactArgs(4),
	RunE:  runProductsAdd,
}

var productsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsRm,
}

func init() {
	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsGetCmd)
	productsCmd.AddCommand(productsAddCmd)
	productsCmd.AddCommand(productsRmCmd)
	rootCmd.AddCommand(productsCmd)
}

func runProductsList(cmd *cobra.Command, args []string) (err error) {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var res rxkart.Result[[]rxkart.Product]
	if len(args) == 1 {
		res, err = c.Products.ByCategory(cmd.Context(), args[0])
	} else {
		res, err = c.Products.List(cmd.Context())
	}
	if err != nil {
		return err
	}

	printStaleNotice(res.Stale)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range res.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Stock)
	}

	return w.Flush()
}

func runProductsGet(cmd *cobra.Command, args []string) (err error) {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	res, err := c.Products.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	printStaleNotice(res.Stale)

	p := res.Data
	fmt.Printf("%s\n  category: %s\n  price: %s\n  stock: %d\n  seller: %s\n",
		p.Name, p.Category, p.Price.StringFixed(2), p.Stock, p.SellerID)
	if p.Description != "" {
		fmt.Printf("  %s\n", p.Description)
	}

	return nil
}

func runProductsAdd(cmd *cobra.Command, args []string) (err error) {
	price, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", args[2], err)
	}

	var stock int
	if _, err := fmt.Sscanf(args[3], "%d", &stock); err != nil {
		return fmt.Errorf("invalid stock %q: %w", args[3], err)
	}

	c, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	created, err := c.Products.Create(cmd.Context(), rxkart.Product{
		Name:     args[0],
		Category: args[1],
		Price:    price,
		Stock:    stock,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created %s\n", created.ID)
	return nil
}

func runProductsRm(cmd *cobra.Command, args []string) (err error) {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := c.Products.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Println("deleted")
	return nil
}

func printStaleNotice(stale bool) {
	if stale {
		fmt.Fprintln(os.Stderr, "! offline: showing cached data, possibly out of date")
	}
}
