package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/timvw/judge-patrol/internal/config"
)

// routeView is one row of the route table. API keys are never shown.
type routeView struct {
	Route string `json:"route"`
	config.RouteConfig
	HasAPIKey bool `json:"has_api_key"`
	Wired     bool `json:"wired"`
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the resolved judge for each modality and tier",
	Long: `Print the route table after applying defaults, config file,
environment variables and flags. A route without a model is not wired
and reviews routed to it fail with "backend unavailable".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		views := make([]routeView, 0, len(config.RouteNames))
		for _, m := range modalities {
			for _, tier := range tiers {
				rc := cfg.Route(m, tier)
				views = append(views, routeView{
					Route:       config.RouteName(m, tier),
					RouteConfig: rc,
					HasAPIKey:   rc.APIKey != "",
					Wired:       rc.Wired(),
				})
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
