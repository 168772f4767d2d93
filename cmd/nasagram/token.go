package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/auth"
	"nasagram/pkg/config"
	"nasagram/pkg/github"
	"nasagram/pkg/instagram"
	"nasagram/pkg/logger"
	"nasagram/pkg/ui"
)

var tokenForceRenew bool

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Diagnose and renew the Instagram access token",
	Long: `Diagnose and renew the Instagram Graph API access token.

Long-lived tokens expire after about 60 days; 'token diagnose' shows how
much time is left and whether the token can reach the configured account,
and 'token renew' exchanges it for a fresh one.`,
}

// tokenDiagnoseCmd represents the token diagnose command
var tokenDiagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check token validity and account access",
	Args:  cobra.NoArgs,
	Run:   runTokenDiagnose,
}

// tokenRenewCmd represents the token renew command
var tokenRenewCmd = &cobra.Command{
	Use:   "renew",
	Short: "Exchange the token for a fresh long-lived one",
	Long: `Exchange the current access token for a fresh long-lived one via
Facebook's fb_exchange_token grant. Renewal is skipped when more than 7
days remain unless --force is given.

When GITHUB_TOKEN and GITHUB_REPOSITORY are set, the new token is written
to the repository's INSTAGRAM_ACCESS_TOKEN Actions secret so scheduled CI
posts keep working.`,
	Args: cobra.NoArgs,
	Run:  runTokenRenew,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenDiagnoseCmd)
	tokenCmd.AddCommand(tokenRenewCmd)

	tokenRenewCmd.Flags().BoolVar(&tokenForceRenew, "force", false, "renew even when the token is not close to expiry")
}

func runTokenDiagnose(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	if err := cfg.ValidateGraphAPI(); err != nil {
		fail("Missing Graph API credentials", err)
	}

	graph := newGraphClient(cfg)
	ctx := context.Background()

	ui.PrintHighlight("Token")
	info, err := graph.DebugToken(ctx, "")
	if err != nil {
		printGraphGuidance(err)
		fail("Token introspection failed", err)
	}

	ui.PrintField("Valid", strconv.FormatBool(info.IsValid))
	ui.PrintField("App ID", info.AppID)
	ui.PrintField("User ID", info.UserID)
	switch {
	case info.NeverExpires():
		ui.PrintField("Expires", "never")
	case info.DaysRemaining() < 0:
		ui.PrintField("Expires", info.ExpiryTime().Format("2006-01-02")+" (expired)")
	default:
		ui.PrintField("Expires", fmt.Sprintf("%s (%d days)",
			info.ExpiryTime().Format("2006-01-02"), info.DaysRemaining()))
	}
	if len(info.Scopes) > 0 {
		ui.PrintField("Scopes", strings.Join(info.Scopes, ", "))
	}
	if info.NeedsRenewal() {
		if info.DaysRemaining() < 0 {
			ui.PrintWarning("Token has expired, run 'nasagram token renew'")
		} else {
			ui.PrintWarning("Token is inside the renewal window, run 'nasagram token renew'")
		}
	}

	fmt.Println()
	ui.PrintHighlight("Account access")
	account, err := graph.AccountInfo(ctx)
	if err != nil {
		printGraphGuidance(err)
		// The token may reach other accounts; list what it can see
		listReachableAccounts(ctx, graph)
		fail("Account access check failed", err)
	}

	ui.PrintField("Account ID", account.ID)
	ui.PrintField("Username", account.Username)
	ui.PrintField("Media count", strconv.Itoa(account.MediaCount))
	ui.PrintSuccess("Token and account access look good")
}

func runTokenRenew(cmd *cobra.Command, args []string) {
	cfg := loadConfig(nil)
	if err := cfg.ValidateGraphAPI(); err != nil {
		fail("Missing Graph API credentials", err)
	}
	if cfg.Facebook.AppID == "" || cfg.Facebook.AppSecret == "" {
		fail("Missing Facebook app credentials",
			fmt.Errorf("FACEBOOK_APP_ID and FACEBOOK_APP_SECRET are required for token exchange"))
	}

	graph := newGraphClient(cfg)
	ctx := context.Background()

	info, err := graph.DebugToken(ctx, "")
	if err != nil {
		printGraphGuidance(err)
		fail("Token introspection failed", err)
	}

	if !info.NeedsRenewal() && !tokenForceRenew {
		if info.NeverExpires() {
			ui.PrintInfo("Token never expires", "nothing to do")
		} else {
			ui.PrintInfo("Renewal not due", fmt.Sprintf("%d days remain (use --force to renew anyway)", info.DaysRemaining()))
		}
		return
	}

	refreshed, err := graph.RefreshToken(ctx, cfg.Facebook.AppID, cfg.Facebook.AppSecret)
	if err != nil {
		printGraphGuidance(err)
		fail("Token exchange failed", err)
	}

	ui.PrintSuccess("Token renewed")
	ui.PrintField("Valid for", fmt.Sprintf("%d days", refreshed.DaysValid()))
	ui.PrintField("Token", auth.MaskSecret(refreshed.AccessToken))

	// Verify the new token before handing it out
	verify := instagram.NewGraphClient(refreshed.AccessToken, cfg.Instagram.AccountID,
		logger.GetLogger(), instagram.WithGraphVersion(cfg.Instagram.APIVersion))
	if _, err := verify.AccountInfo(ctx); err != nil {
		fail("New token failed verification", err)
	}
	ui.PrintSuccess("New token verified against the account")

	if cfg.GitHub.Token != "" && cfg.GitHub.Repository != "" {
		gh, err := github.NewClient(cfg.GitHub.Token, cfg.GitHub.Repository, logger.GetLogger())
		if err != nil {
			fail("GitHub client setup failed", err)
		}
		if err := gh.UpdateSecret(ctx, "INSTAGRAM_ACCESS_TOKEN", refreshed.AccessToken); err != nil {
			fail("Failed to update GitHub secret", err)
		}
		ui.PrintSuccess("Updated INSTAGRAM_ACCESS_TOKEN secret in " + cfg.GitHub.Repository)
	} else {
		ui.PrintInfo("GitHub secret not updated", "set GITHUB_TOKEN and GITHUB_REPOSITORY to automate this")
		ui.PrintWarning("Store the new token yourself; only the masked preview is printed above")
	}
}

func newGraphClient(cfg *config.Config) *instagram.GraphClient {
	return instagram.NewGraphClient(
		cfg.Instagram.AccessToken,
		cfg.Instagram.AccountID,
		logger.GetLogger(),
		instagram.WithGraphVersion(cfg.Instagram.APIVersion),
	)
}

// printGraphGuidance prints targeted advice for common Graph API errors
func printGraphGuidance(err error) {
	var apiErr *apierrors.Error
	if !errors.As(err, &apiErr) {
		return
	}

	switch {
	case strings.Contains(apiErr.Message, "graph code 190"):
		ui.PrintWarning("Error 190: the access token is invalid or expired. Generate a new long-lived token and run 'nasagram token renew'.")
	case strings.Contains(apiErr.Message, "graph code 100"):
		ui.PrintWarning("Error 100: the account ID looks wrong. Check INSTAGRAM_ACCOUNT_ID against the accounts listed below.")
	case strings.Contains(apiErr.Message, "graph code 10"):
		ui.PrintWarning("Error 10: the token lacks permissions. It needs instagram_basic, instagram_content_publish and pages_read_engagement.")
	}
}

// listReachableAccounts walks /me/accounts and prints linked business accounts
func listReachableAccounts(ctx context.Context, graph *instagram.GraphClient) {
	pages, err := graph.Pages(ctx)
	if err != nil || len(pages) == 0 {
		return
	}

	fmt.Println()
	ui.PrintHighlight("Accounts reachable with this token")
	for _, page := range pages {
		if page.InstagramAccountID != "" {
			ui.PrintField(page.Name, "Instagram account "+page.InstagramAccountID)
		} else {
			ui.PrintField(page.Name, "no linked Instagram business account")
		}
	}
}
