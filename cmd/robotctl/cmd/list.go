package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List missions",
	Long:  `List missions known to the control plane, optionally filtered by status (pending, in_progress, completed, failed).`,
	Run: func(cmd *cobra.Command, args []string) {
		client := NewMissionClient(viper.GetString("url"), viper.GetString("token"))

		status, _ := cmd.Flags().GetString("status")
		missions, err := client.ListMissions(status)
		if err != nil {
			cmd.Printf("Failed to list missions: %v\n", err)
			return
		}

		if len(missions) == 0 {
			cmd.Println("No missions")
			return
		}

		for _, m := range missions {
			cmd.Printf("%s  %s  %s  %d/%d steps  %s\n",
				statusIcon(m.Status), m.ID, m.Name,
				m.CurrentStepIndex, len(m.Steps), colorizeStatus(m.Status))
		}
	},
}

func init() {
	listCmd.Flags().String("status", "", "Filter by mission status")
	rootCmd.AddCommand(listCmd)
}
