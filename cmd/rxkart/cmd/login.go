package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and persist the session",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the persisted session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) (err error) {
	fmt.Fprint(os.Stderr, "password: ")
	r := bufio.NewReader(os.Stdin)
	password, err := r.ReadString('\n')
	if err != nil {
		return err
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

	sess, err := c.Login(cmd.Context(), args[0], strings.TrimSpace(password))
	if err != nil {
		return err
	}

	fmt.Printf("logged in as %s (%s)\n", sess.Name, sess.Role)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) (err error) {
	c, err := newClient()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	c.Logout()
	fmt.Println("logged out")
	return nil
}
