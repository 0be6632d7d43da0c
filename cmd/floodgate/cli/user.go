package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/floodgatehq/floodgate/internal/auth"
	"github.com/floodgatehq/floodgate/internal/model"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "Create, list, and promote user accounts directly against the store, without going through the HTTP API.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserPromoteCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		username string
		email    string
		password string
		admin    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user account",
		Example: `  floodgate user create --username alice --email alice@example.com
  floodgate user create --username root --email ops@example.com --admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(username, email, password, admin)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runUserCreate(username, email, password string, admin bool) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address: %q", email)
	}

	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	role := model.RoleUser
	if admin {
		role = model.RoleAdmin
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := st.CreateUser(context.Background(), user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("Created %s %q (%s)\n", role, username, email)
	return nil
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	users, err := st.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Println("No users found. Use 'floodgate user create' to create one.")
		return nil
	}

	fmt.Printf("%-20s %-30s %-8s %-8s\n", "USERNAME", "EMAIL", "ROLE", "ACTIVE")
	fmt.Printf("%-20s %-30s %-8s %-8s\n", "--------", "-----", "----", "------")
	for _, u := range users {
		active := "yes"
		if !u.IsActive {
			active = "no"
		}
		fmt.Printf("%-20s %-30s %-8s %-8s\n", u.Username, u.Email, u.Role, active)
	}

	return nil
}

// ---------- user promote ----------

func newUserPromoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote <username>",
		Short: "Grant the admin role to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserPromote(args[0])
		},
	}

	return cmd
}

func runUserPromote(username string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	user, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user %q not found", username)
	}
	if user.Role == model.RoleAdmin {
		fmt.Printf("%q is already an admin\n", username)
		return nil
	}

	role := model.RoleAdmin
	if _, err := st.UpdateUser(ctx, user.ID, model.UserUpdate{Role: &role}); err != nil {
		return fmt.Errorf("promote user: %w", err)
	}

	fmt.Printf("Promoted %q to admin\n", username)
	return nil
}
