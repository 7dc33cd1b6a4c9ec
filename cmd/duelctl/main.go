package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "duelctl",
	Short: "Inspect a running duel judging server",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "judging server base url")
	rootCmd.PersistentFlags().String("token", "", "bearer token for per-user endpoints")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.AddCommand(scoreboardCmd, queueCmd, statusCmd, watchCmd)
}

func initConfig() {
	viper.SetEnvPrefix("DUELCTL")
	viper.AutomaticEnv()
}

func newClient() *client {
	return &client{base: viper.GetString("server"), token: viper.GetString("token")}
}
