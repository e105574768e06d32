package cmd

import (
	"fmt"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/spf13/cobra"

	"github.com/demostf/go-client/demostf"
	"github.com/demostf/go-client/filter"
)

var (
	listPage     int
	listOrder    string
	listMap      string
	listBackend  string
	listType     string
	listPlayers  []string
	listUploader string
	listFilter   string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List demos",
	Long: `List one page of demos, optionally filtered by map, players, backend or
game type on the server and by an expression client-side.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVarP(&listPage, "page", "p", 1, "page to fetch (pages start at 1)")
	listCmd.Flags().StringVarP(&listOrder, "order", "o", "desc", "sort order: asc or desc")
	listCmd.Flags().StringVarP(&listMap, "map", "m", "", "filter by map name")
	listCmd.Flags().StringVar(&listBackend, "backend", "", "filter by storage backend")
	listCmd.Flags().StringVar(&listType, "type", "", "filter by game type: hl, prolander, 6v6 or 4v4")
	listCmd.Flags().StringSliceVar(&listPlayers, "player", nil, "filter by player steam id, repeatable")
	listCmd.Flags().StringVar(&listUploader, "uploader", "", "list demos uploaded by the given steam id")
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "client-side filter expression, e.g. 'Demo.PlayerCount >= 12'")
}

func runList(cmd *cobra.Command, args []string) error {
	params, err := buildListParams()
	if err != nil {
		return err
	}

	var demoFilter *filter.Filter
	if listFilter != "" {
		demoFilter, err = filter.Compile(listFilter)
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()

	var demos []demostf.Demo
	if listUploader != "" {
		uploader, err := demostf.ParseSteamID(listUploader)
		if err != nil {
			return err
		}
		demos, err = client.ListUploads(ctx, uploader, params, listPage)
		if err != nil {
			return err
		}
	} else {
		demos, err = client.List(ctx, params, listPage)
		if err != nil {
			return err
		}
	}

	if demoFilter != nil {
		demos, err = demoFilter.Apply(demos)
		if err != nil {
			return err
		}
	}

	if len(demos) == 0 {
		fmt.Println("no demos found")
		return nil
	}

	for _, demo := range demos {
		printDemoLine(demo)
	}
	return nil
}

func buildListParams() (demostf.ListParams, error) {
	params := demostf.ListParams{}

	switch listOrder {
	case "asc":
		params = params.WithOrder(demostf.OrderAscending)
	case "desc":
		params = params.WithOrder(demostf.OrderDescending)
	default:
		return params, fmt.Errorf("invalid order %q, expected asc or desc", listOrder)
	}

	if listMap != "" {
		params = params.WithMap(listMap)
	}
	if listBackend != "" {
		params = params.WithBackend(listBackend)
	}
	if listType != "" {
		params = params.WithType(demostf.GameType(listType))
	}

	if len(listPlayers) > 0 {
		players := make([]steamid.SteamID, 0, len(listPlayers))
		for _, raw := range listPlayers {
			sid, err := demostf.ParseSteamID(raw)
			if err != nil {
				return params, err
			}
			players = append(players, sid)
		}
		params = params.WithPlayers(players...)
	}

	return params, nil
}

func printDemoLine(demo demostf.Demo) {
	fmt.Printf("%7d  %s  %-24s  %-28s  %2d players  %s vs %s\n",
		demo.ID,
		demo.Time.Format("2006-01-02 15:04"),
		demo.Map,
		demo.Name,
		demo.PlayerCount,
		demo.Red,
		demo.Blue,
	)
}
