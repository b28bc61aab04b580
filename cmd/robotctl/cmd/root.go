package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "robotctl",
	Short: "Robotctl is a command line tool for the robotplane control plane",
	Long: `robotctl is the operator command-line interface for the robotplane
warehouse-robot control plane.

The control plane translates high-level intents (pick up the bin at a
shelf, drop it at a dock) into sequences of robot operations, executes
them in the background, and persists progress so a multi-minute mission
survives restarts and disconnects.

Common workflows:

  Dispatch a local pickup:
    robotctl pickup --shelf "10.4,3.8,1.57" --pickup "2.0,1.0,0" --standby "0,0,0"

  Run the fixed zone workflow:
    robotctl zone

  Check a mission:
    robotctl status <mission-id>

  List and clean up:
    robotctl list --status failed
    robotctl clear

  Seize manual control:
    robotctl cancel --all

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    ROBOTPLANE_URL      API endpoint (default: http://localhost:6161)
    ROBOTPLANE_TOKEN    Operator token for authentication`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".robotctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".robotctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "ROBOTPLANE_VARNAME"
	viper.SetEnvPrefix("ROBOTPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.robotctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "Robotplane control-plane URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "Operator token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
