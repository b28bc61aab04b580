package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"robotplane/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [mission_id]",
	Short: "Get status of a mission",
	Long: `Retrieve detailed status for a mission, including its current state
(pending, in_progress, completed, failed), per-step progress, retry
counts, and timestamps. The mission resource is the authoritative record
of what actually happened.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := NewMissionClient(viper.GetString("url"), viper.GetString("token"))

		mission, err := client.GetMission(args[0])
		if err != nil {
			cmd.Printf("Failed to fetch mission: %v\n", err)
			return
		}

		printMission(cmd, mission)
	},
}

func printMission(cmd *cobra.Command, m *api.MissionResponse) {
	icon := statusIcon(m.Status)
	cmd.Printf("%s %sMission Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s       %s\n", colorDim, colorReset, m.ID)
	cmd.Printf("%sName:%s     %s\n", colorDim, colorReset, m.Name)
	cmd.Printf("%sRobot:%s    %s\n", colorDim, colorReset, m.RobotID)
	cmd.Printf("%sStatus:%s   %s\n", colorDim, colorReset, colorizeStatus(m.Status))
	cmd.Printf("%sProgress:%s %d/%d steps\n", colorDim, colorReset, m.CurrentStepIndex, len(m.Steps))

	if m.Offline {
		cmd.Printf("%sOffline:%s  %srobot unreachable, retrying%s\n", colorDim, colorReset, colorYellow, colorReset)
	}
	if m.FailureReason != "" {
		cmd.Printf("%sError:%s    %s%s%s\n", colorDim, colorReset, colorRed, m.FailureReason, colorReset)
	}

	cmd.Printf("%sCreated:%s  %s\n", colorDim, colorReset, formatTimeWithRelative(m.CreatedAt))
	cmd.Printf("%sUpdated:%s  %s\n", colorDim, colorReset, formatTimeWithRelative(m.UpdatedAt))

	cmd.Println()
	for i, step := range m.Steps {
		mark := "◯"
		if step.Completed {
			mark = colorGreen + "✓" + colorReset
		} else if step.Error != "" {
			mark = colorRed + "✗" + colorReset
		}
		line := fmt.Sprintf("  %s %d. %s", mark, i, step.Type)
		if step.RetryCount > 0 {
			line += fmt.Sprintf(" %s(retries: %d)%s", colorYellow, step.RetryCount, colorReset)
		}
		if step.Error != "" && !step.Completed {
			line += fmt.Sprintf(" %s%s%s", colorRed, step.Error, colorReset)
		}
		cmd.Println(line)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "completed":
		return colorGreen + "✓" + colorReset
	case "failed":
		return colorRed + "✗" + colorReset
	case "in_progress":
		return colorYellow + "⏳" + colorReset
	case "pending":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "completed":
		return icon + " " + colorGreen + status + colorReset
	case "failed":
		return icon + " " + colorRed + status + colorReset
	case "in_progress":
		return icon + " " + colorYellow + status + colorReset
	case "pending":
		return icon + " " + colorCyan + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relativeTime(t), colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
