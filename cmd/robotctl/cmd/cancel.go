package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [mission_id]",
	Short: "Cancel a mission, or all active missions with --all",
	Long: `Cancel one active mission by ID, or every pending and in-progress
mission with --all. Cancelling is how an operator seizes manual control
of the robot; an in-flight move is also cancelled at the robot when
feasible.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewMissionClient(viper.GetString("url"), viper.GetString("token"))

		all, _ := cmd.Flags().GetBool("all")
		if all {
			resp, err := client.CancelAll()
			if err != nil {
				cmd.Printf("Failed to cancel missions: %v\n", err)
				return
			}
			cmd.Printf("Cancelled %d active mission(s)\n", resp.Cancelled)
			return
		}

		if len(args) != 1 {
			cmd.Println("Provide a mission ID or use --all")
			return
		}

		resp, err := client.CancelMission(args[0])
		if err != nil {
			cmd.Printf("Failed to cancel mission: %v\n", err)
			return
		}
		if resp.Cancelled {
			cmd.Println("Mission cancelled")
		} else {
			cmd.Println("Mission already finished; nothing to cancel")
		}
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop completed and failed missions from the active set",
	Long:  `Drop terminal missions from the control plane's active set. Their outcomes remain in the audit log.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := NewMissionClient(viper.GetString("url"), viper.GetString("token"))

		resp, err := client.ClearTerminal()
		if err != nil {
			cmd.Printf("Failed to clear missions: %v\n", err)
			return
		}
		cmd.Printf("Cleared %d mission(s)\n", resp.Cleared)
	},
}

func init() {
	cancelCmd.Flags().Bool("all", false, "Cancel every pending and in-progress mission")
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(clearCmd)
}
