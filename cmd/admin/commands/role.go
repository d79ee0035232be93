package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/study-share/internal/domain"
	"github.com/spec-kit/study-share/internal/repository"
	"github.com/spec-kit/study-share/internal/service"
)

var (
	roleEmail string
	roleName  string
)

// setRoleCmd grants or revokes moderator roles
var setRoleCmd = &cobra.Command{
	Use:   "set-role",
	Short: "Change a member's role",
	Long: `Change the role of the member registered with --email.

Examples:
  study-share-admin set-role --email ada@example.com --role super-admin
  study-share-admin set-role --email ada@example.com --role user`,
	RunE: func(cmd *cobra.Command, args []string) error {
		role := domain.Role(strings.ToLower(strings.TrimSpace(roleName)))
		if !role.Valid() {
			return fmt.Errorf("unknown role %q: want user, admin or super-admin", roleName)
		}
		if strings.TrimSpace(roleEmail) == "" {
			return fmt.Errorf("--email is required")
		}

		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		pg, err := env.connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pg.Close()

		admin := service.NewAdminService(service.AdminDependencies{
			UserRepo: repository.NewUserRepository(pg.PoolHandle()),
			Logger:   env.logger,
		})
		user, err := admin.SetRoleByEmail(cmd.Context(), roleEmail, role)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", user.Email, user.ID, user.Role)
		return nil
	},
}

func init() {
	setRoleCmd.Flags().StringVar(&roleEmail, "email", "", "Email of the member")
	setRoleCmd.Flags().StringVar(&roleName, "role", "", "New role: user, admin or super-admin")
	rootCmd.AddCommand(setRoleCmd)
}
