package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nasagram/pkg/auth"
	"nasagram/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Instagram credentials",
	Long: `Manage stored Instagram credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only, for CI runs)

Never share your credentials or config files!`,
}

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store Instagram credentials securely",
	Long: `Store Instagram credentials under a named account.

For the official Graph API you need a long-lived access token and the
Instagram business account ID. For the unofficial session path you can
store the sessionid cookie from a logged-in browser instead.`,
	Example: `  # Interactive login
  nasagram auth login

  # Store under a specific account name
  nasagram auth login work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthLogin,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored credentials",
	Example: `  # Remove a specific account
  nasagram auth logout work`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthLogout,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts with masked credentials",
	Args:  cobra.NoArgs,
	Run:   runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authListCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	reader := bufio.NewReader(os.Stdin)

	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		fmt.Print("Account name (e.g. default): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fail("Failed to read account name", err)
		}
		name = strings.TrimSpace(input)
	}
	if name == "" {
		name = "default"
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("Account %q already exists. Update credentials? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("Instagram username (optional): ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	fmt.Println("\nCredential values are hidden as you type.")
	fmt.Print("Graph API access token (leave empty to store a web session instead): ")
	accessToken, err := readSecret()
	if err != nil {
		fail("Failed to read access token", err)
	}

	account := &auth.Account{
		Name:     name,
		Username: username,
	}

	if accessToken != "" {
		fmt.Print("Instagram business account ID: ")
		accountID, err := reader.ReadString('\n')
		if err != nil {
			fail("Failed to read account ID", err)
		}
		account.AccessToken = accessToken
		account.AccountID = strings.TrimSpace(accountID)
		if account.AccountID == "" {
			fail("Missing account ID", fmt.Errorf("the Graph API needs the business account ID"))
		}
	} else {
		fmt.Print("sessionid cookie value: ")
		sessionID, err := readSecret()
		if err != nil {
			fail("Failed to read session ID", err)
		}
		if sessionID == "" {
			fail("No credentials given", fmt.Errorf("either an access token or a sessionid is required"))
		}
		account.SessionID = sessionID
	}

	if err := manager.Store(account); err != nil {
		fail("Failed to store credentials", err)
	}

	ui.PrintSuccess("Credentials stored: " + name)
	if account.HasGraphCredentials() {
		ui.PrintField("Token", account.MaskedToken())
	}
	fmt.Println("\nNever share your credentials or config files!")
}

func runAuthLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	if len(args) > 0 {
		if err := manager.Delete(args[0]); err != nil {
			fail("Failed to remove account", err)
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "nothing to remove")
		return
	}

	if len(accounts) == 1 {
		account := accounts[0]
		reader := bufio.NewReader(os.Stdin)
		fmt.Printf("Remove account %q? (y/N): ", account.Name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
		if err := manager.Delete(account.Name); err != nil {
			fail("Failed to remove account", err)
		}
		ui.PrintSuccess("Account removed: " + account.Name)
		return
	}

	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Name)
	}
	fmt.Print("\nChoice (0 to cancel): ")

	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)
	if choice < 1 || choice > len(accounts) {
		return
	}

	name := accounts[choice-1].Name
	if err := manager.Delete(name); err != nil {
		fail("Failed to remove account", err)
	}
	ui.PrintSuccess("Account removed: " + name)
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize credential manager", err)
	}

	accounts, err := manager.List()
	if err != nil {
		fail("Failed to list accounts", err)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'nasagram auth login' to add one")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()

	for i, account := range accounts {
		fmt.Printf("%d. %s\n", i+1, account.Name)
		if account.Username != "" {
			fmt.Printf("   Username: %s\n", account.Username)
		}
		if account.HasGraphCredentials() {
			fmt.Printf("   Access Token: %s\n", account.MaskedToken())
			fmt.Printf("   Account ID: %s\n", account.AccountID)
		}
		if account.HasSessionCredentials() {
			fmt.Printf("   Session ID: %s\n", auth.MaskSecret(account.SessionID))
		}
		fmt.Printf("   Last Modified: %s\n", account.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readSecret reads a value from stdin without echoing
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		value, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(value)), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
