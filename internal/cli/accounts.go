package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/talentflow/internal/session"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the accounts you can log in as",
	Args:  cobra.NoArgs,
	Run:   runAccounts,
}

var loginCmd = &cobra.Command{
	Use:   "login <account-id>",
	Short: "Switch to another account",
	Long: `Switch the current session to another account. The choice is saved in
the config file and used by later commands.

Example:
  talentflow login kraya`,
	Args: cobra.ExactArgs(1),
	Run:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Return to the read-only main account",
	Args:  cobra.NoArgs,
	Run:   runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current account",
	Args:  cobra.NoArgs,
	Run:   runWhoami,
}

func runAccounts(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	current := session.Restore(cfg.Account).Current()

	for _, a := range session.Accounts() {
		if a.ID == current.ID {
			color.New(color.FgGreen).Printf("* %-6s ", a.ID)
		} else {
			fmt.Printf("  %-6s ", a.ID)
		}
		fmt.Printf("%-14s ", a.Name)
		color.New(color.Faint).Printf("%-9s %s\n", a.Role, a.Title)
	}
}

func runLogin(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s := session.Restore(cfg.Account)
	if err := s.Login(args[0]); err != nil {
		exitError("%v", err)
	}

	cfg.Account = s.Current().ID
	if err := cfg.Save(); err != nil {
		exitError("failed to save config: %v", err)
	}
	color.New(color.FgGreen).Print("Logged in as ")
	fmt.Println(s.Current().Name)
}

func runLogout(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s := session.Restore(cfg.Account)
	s.Logout()

	cfg.Account = s.Current().ID
	if err := cfg.Save(); err != nil {
		exitError("failed to save config: %v", err)
	}
	fmt.Printf("Logged out, now %s (read-only)\n", s.Current().Name)
}

func runWhoami(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	a := session.Restore(cfg.Account).Current()
	fmt.Printf("%s (%s)", a.Name, a.ID)
	if a.CanEdit() {
		color.New(color.FgGreen).Println(" can edit")
	} else {
		color.New(color.Faint).Println(" read-only")
	}
}
