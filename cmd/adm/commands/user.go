package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"surveyapp/internal/observability"
	"surveyapp/internal/services"
	contextutils "surveyapp/internal/utils"

	"github.com/spf13/cobra"
)

// PasswordPrompt reads a secret after printing prompt
type PasswordPrompt func(prompt string) (string, error)

// TerminalPasswordPrompt reads a password from the terminal without echo
func TerminalPasswordPrompt(prompt string) (string, error) {
	fmt.Print(prompt)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return "", err
	}
	return string(passwordBytes), nil
}

// UserCommands returns the user management commands
func UserCommands(userService services.UserServiceInterface, logger *observability.Logger, prompt PasswordPrompt) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands for the survey backend.

Available commands:
  create   - Create a user
  list     - List all users
  passwd   - Reset password for a specific user
  delete   - Delete a user and all of their surveys`,
	}

	userCmd.AddCommand(createUserCmd(userService, logger, prompt))
	userCmd.AddCommand(listCmd(userService, logger))
	userCmd.AddCommand(resetPasswordCmd(userService, logger, prompt))
	userCmd.AddCommand(deleteUserCmd(userService, logger))

	return userCmd
}

func createUserCmd(userService services.UserServiceInterface, logger *observability.Logger, prompt PasswordPrompt) *cobra.Command {
	return &cobra.Command{
		Use:   "create [username]",
		Short: "Create a user",
		Long:  `Create a user account. If username is not provided, you will be prompted for it.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			username, err := usernameArg(cmd, args)
			if err != nil {
				return err
			}
			password, err := readConfirmedPassword(prompt, "Enter password: ", "Confirm password: ")
			if err != nil {
				return err
			}

			user, err := userService.CreateUserWithPassword(ctx, username, password)
			if err != nil {
				logger.Error(ctx, "Failed to create user", err, map[string]interface{}{"username": username})
				return contextutils.WrapErrorf(err, "failed to create user '%s'", username)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created user '%s' (ID: %d)\n", user.Username, user.ID)
			logger.Info(ctx, "User created", map[string]interface{}{"username": username, "user_id": user.ID})
			return nil
		},
	}
}

func listCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Long:  `List all users in the database with their basic information.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			users, err := userService.GetAllUsers(ctx)
			if err != nil {
				logger.Error(ctx, "Failed to get users", err, nil)
				return contextutils.WrapError(err, "failed to get users")
			}

			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users found")
				return nil
			}

			fmt.Fprintf(out, "%-5s %-30s %-10s\n", "ID", "Username", "Created")
			fmt.Fprintln(out, strings.Repeat("-", 47))
			for _, user := range users {
				fmt.Fprintf(out, "%-5d %-30s %-10s\n", user.ID, user.Username, user.CreatedAt.Format("2006-01-02"))
			}

			logger.Info(ctx, "Listed users", map[string]interface{}{"total": len(users)})
			return nil
		},
	}
}

func resetPasswordCmd(userService services.UserServiceInterface, logger *observability.Logger, prompt PasswordPrompt) *cobra.Command {
	return &cobra.Command{
		Use:     "passwd [username]",
		Aliases: []string{"reset-password"},
		Short:   "Reset password for a user",
		Long:    `Reset the password for a specific user. If username is not provided, you will be prompted for it.`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			username, err := usernameArg(cmd, args)
			if err != nil {
				return err
			}

			user, err := userService.GetUserByUsername(ctx, username)
			if err != nil {
				logger.Error(ctx, "Failed to get user", err, map[string]interface{}{"username": username})
				return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
			}
			if user == nil {
				return contextutils.ErrorWithContextf("user '%s' not found", username)
			}

			newPassword, err := readConfirmedPassword(prompt, "Enter new password: ", "Confirm new password: ")
			if err != nil {
				return err
			}

			if err := userService.UpdateUserPassword(ctx, user.ID, newPassword); err != nil {
				logger.Error(ctx, "Failed to update password", err, map[string]interface{}{"username": username, "user_id": user.ID})
				return contextutils.WrapErrorf(err, "failed to update password for user '%s'", username)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Password successfully reset for user '%s' (ID: %d)\n", username, user.ID)
			logger.Info(ctx, "Password reset successful", map[string]interface{}{"username": username, "user_id": user.ID})
			return nil
		},
	}
}

func deleteUserCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete username",
		Short: "Delete a user",
		Long:  `Delete a user. Their surveys, questions and collected answers are removed with them.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			username := args[0]

			user, err := userService.GetUserByUsername(ctx, username)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to get user '%s'", username)
			}
			if user == nil {
				return contextutils.ErrorWithContextf("user '%s' not found", username)
			}

			if err := userService.DeleteUser(ctx, user.ID); err != nil {
				logger.Error(ctx, "Failed to delete user", err, map[string]interface{}{"username": username, "user_id": user.ID})
				return contextutils.WrapErrorf(err, "failed to delete user '%s'", username)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user '%s' (ID: %d)\n", username, user.ID)
			return nil
		},
	}
}

// usernameArg returns the first argument or reads a username from the command's input
func usernameArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}

	fmt.Fprint(cmd.OutOrStdout(), "Enter username: ")
	username, err := readLine(cmd.InOrStdin())
	if err != nil {
		return "", contextutils.WrapError(err, "failed to read username")
	}
	if username == "" {
		return "", contextutils.ErrorWithContextf("username is required")
	}
	return username, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readConfirmedPassword(prompt PasswordPrompt, first, confirm string) (string, error) {
	password, err := prompt(first)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to read password")
	}
	if password == "" {
		return "", contextutils.ErrorWithContextf("password cannot be empty")
	}

	confirmation, err := prompt(confirm)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to read password confirmation")
	}
	if password != confirmation {
		return "", contextutils.ErrorWithContextf("passwords do not match")
	}
	return password, nil
}
