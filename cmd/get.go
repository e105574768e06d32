package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <demo-id>",
	Short: "Show a single demo",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat <demo-id>",
	Short: "Show the chat log of a demo",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func parseDemoID(arg string) (uint32, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid demo id %q", arg)
	}
	return uint32(id), nil
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := parseDemoID(args[0])
	if err != nil {
		return err
	}

	demo, err := client.Get(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Printf("%s (#%d)\n", demo.Name, demo.ID)
	fmt.Printf("  map:      %s\n", demo.Map)
	fmt.Printf("  server:   %s\n", demo.Server)
	fmt.Printf("  uploaded: %s by %s\n", demo.Time.Format("2006-01-02 15:04"), demo.Nick)
	fmt.Printf("  duration: %dm%02ds\n", demo.Duration/60, demo.Duration%60)
	fmt.Printf("  score:    %s %d - %d %s\n", demo.Red, demo.RedScore, demo.BlueScore, demo.Blue)
	if !demo.Hash.IsZero() {
		fmt.Printf("  hash:     %s\n", demo.Hash)
	}

	if len(demo.Players) > 0 {
		fmt.Println("  players:")
		for _, player := range demo.Players {
			fmt.Printf("    %-4s %-12s %-24s %d/%d/%d\n",
				player.Team, player.Class, player.User.Name,
				player.Kills, player.Assists, player.Deaths)
		}
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	id, err := parseDemoID(args[0])
	if err != nil {
		return err
	}

	chat, err := client.GetChat(cmd.Context(), id)
	if err != nil {
		return err
	}

	for _, message := range chat {
		fmt.Printf("[%4d:%02d] %s: %s\n", message.Time/60, message.Time%60, message.User, message.Message)
	}
	return nil
}
