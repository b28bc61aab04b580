package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"robotplane/pkg/api"
)

var pickupCmd = &cobra.Command{
	Use:   "pickup",
	Short: "Dispatch a local pickup mission",
	Long: `Dispatch a local pickup: the robot drives to the shelf, lifts the
bin, carries it to the pickup point, lowers it, and returns to standby.
If the robot is charging, the jack operations are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		runLocalTask(cmd, "pickup")
	},
}

var dropoffCmd = &cobra.Command{
	Use:   "dropoff",
	Short: "Dispatch a local dropoff mission",
	Long: `Dispatch a local dropoff: the robot collects the bin at the pickup
point and returns it to the shelf. If the robot is charging, the jack
operations are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		runLocalTask(cmd, "dropoff")
	},
}

func runLocalTask(cmd *cobra.Command, kind string) {
	req, err := localTaskRequest(cmd)
	if err != nil {
		cmd.Printf("Invalid arguments: %v\n", err)
		return
	}

	client := NewMissionClient(viper.GetString("url"), viper.GetString("token"))

	var resp *api.CreateMissionResponse
	if kind == "pickup" {
		resp, err = client.CreateLocalPickup(*req)
	} else {
		resp, err = client.CreateLocalDropoff(*req)
	}
	if err != nil {
		cmd.Printf("Failed to dispatch %s: %v\n", kind, err)
		return
	}

	cmd.Printf("Mission dispatched: %s\n", resp.MissionID)
	if resp.Charging {
		cmd.Println("Robot is charging: jack operations omitted from the sequence")
	}
}

func localTaskRequest(cmd *cobra.Command) (*api.LocalTaskRequest, error) {
	shelf, err := parsePoint(cmd.Flag("shelf").Value.String(), "shelf")
	if err != nil {
		return nil, err
	}
	pickup, err := parsePoint(cmd.Flag("pickup").Value.String(), "pickup")
	if err != nil {
		return nil, err
	}
	standby, err := parsePoint(cmd.Flag("standby").Value.String(), "standby")
	if err != nil {
		return nil, err
	}
	return &api.LocalTaskRequest{Shelf: shelf, Pickup: pickup, Standby: standby}, nil
}

// parsePoint parses "x,y,orientation" into a labelled point.
func parsePoint(s, label string) (api.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return api.Point{}, fmt.Errorf("%s must be \"x,y,orientation\", got %q", label, s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return api.Point{}, fmt.Errorf("%s has invalid number %q", label, p)
		}
		vals[i] = v
	}
	return api.Point{X: vals[0], Y: vals[1], Orientation: vals[2], Label: label}, nil
}

func init() {
	for _, c := range []*cobra.Command{pickupCmd, dropoffCmd} {
		c.Flags().String("shelf", "", "Shelf pose as \"x,y,orientation\" (required)")
		c.Flags().String("pickup", "", "Pickup pose as \"x,y,orientation\" (required)")
		c.Flags().String("standby", "", "Standby pose as \"x,y,orientation\" (required)")
		c.MarkFlagRequired("shelf")
		c.MarkFlagRequired("pickup")
		c.MarkFlagRequired("standby")
		rootCmd.AddCommand(c)
	}
}
