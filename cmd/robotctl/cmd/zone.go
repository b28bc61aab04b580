package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Dispatch the fixed zone-104 workflow",
	Long: `Dispatch the commissioned zone-104 pickup-and-delivery run: dock
approach, rack alignment, lift, carry to the unload point, lower, and
return to the charger.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := NewMissionClient(viper.GetString("url"), viper.GetString("token"))

		resp, err := client.CreateZoneWorkflow()
		if err != nil {
			cmd.Printf("Failed to dispatch zone workflow: %v\n", err)
			return
		}
		cmd.Printf("Mission dispatched: %s\n", resp.MissionID)
	},
}

func init() {
	rootCmd.AddCommand(zoneCmd)
}
