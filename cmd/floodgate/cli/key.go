package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/floodgatehq/floodgate/internal/service"
	"github.com/floodgatehq/floodgate/internal/store"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke API keys used to authenticate against the Floodgate REST API.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// keyService opens the store and wraps it in an APIKeyService for CLI use.
func keyService() (*service.APIKeyService, *store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return service.NewAPIKeyService(st, logger), st, nil
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		username    string
		name        string
		rateLimit   int
		expiresDays int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key owned by a user. The raw key is shown once and cannot be retrieved again.",
		Example: `  floodgate key create --user alice --name "CI pipeline"
  floodgate key create --user alice --name prod --rate-limit 5000 --expires-days 90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(username, name, rateLimit, expiresDays)
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "Username that owns the key (required)")
	cmd.Flags().StringVar(&name, "name", "", "Human-readable key name (required)")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "Requests-per-hour quota recorded on the key (0 = default)")
	cmd.Flags().IntVar(&expiresDays, "expires-days", 0, "Days until the key expires (0 = never)")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runKeyCreate(username, name string, rateLimit, expiresDays int) error {
	keys, st, err := keyService()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	owner, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user %q not found", username)
	}

	key, rawSecret, err := keys.Issue(ctx, owner.ID, name, rateLimit, expiresDays)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Println("API Key created:")
	fmt.Println()
	fmt.Printf("  Key:    %s\n", rawSecret)
	fmt.Printf("  Owner:  %s\n", username)
	fmt.Printf("  Name:   %s\n", key.Name)
	if key.ExpiresAt != nil {
		fmt.Printf("  Expires: %s\n", key.ExpiresAt.Format("2006-01-02"))
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var (
		username   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List a user's API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(username, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "Username whose keys to list (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.MarkFlagRequired("user")

	return cmd
}

func runKeyList(username string, jsonOutput bool) error {
	keys, st, err := keyService()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	owner, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user %q not found", username)
	}

	list, err := keys.ListByOwner(ctx, owner.ID)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		fmt.Printf("No API keys for %q. Use 'floodgate key create' to create one.\n", username)
		return nil
	}

	fmt.Printf("%-14s %-24s %-12s %-8s\n", "PREFIX", "NAME", "RATE LIMIT", "ACTIVE")
	fmt.Printf("%-14s %-24s %-12s %-8s\n", "------", "----", "----------", "------")
	for _, k := range list {
		active := "yes"
		if !k.IsActive {
			active = "no"
		}
		fmt.Printf("%-14s %-24s %-12d %-8s\n", k.KeyPrefix, k.Name, k.RateLimit, active)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "revoke <prefix>",
		Short: "Revoke an API key by its prefix",
		Long:  "Deactivate an API key, preventing any further authenticated requests using that key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(username, args[0])
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "Username that owns the key (required)")
	cmd.MarkFlagRequired("user")

	return cmd
}

func runKeyRevoke(username, prefix string) error {
	keys, st, err := keyService()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	owner, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user %q not found", username)
	}

	list, err := keys.ListByOwner(ctx, owner.ID)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	var matchedID, matchedPrefix string
	for _, k := range list {
		if strings.HasPrefix(k.KeyPrefix, prefix) {
			matchedID = k.ID
			matchedPrefix = k.KeyPrefix
			break
		}
	}
	if matchedID == "" {
		return fmt.Errorf("no API key found with prefix %q", prefix)
	}

	if err := keys.Revoke(ctx, matchedID, owner.ID); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	fmt.Printf("Revoked API key with prefix %q\n", matchedPrefix)
	return nil
}
