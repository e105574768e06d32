package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// usersCmd represents the users command
var usersCmd = &cobra.Command{
	Use:   "users <query>",
	Short: "Search users by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsers,
}

func runUsers(cmd *cobra.Command, args []string) error {
	users, err := client.SearchUsers(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if len(users) == 0 {
		fmt.Println("no users found")
		return nil
	}

	for _, user := range users {
		fmt.Printf("%7d  %-32s %s\n", user.ID, user.Name, user.SteamID.String())
	}
	return nil
}
