package main

import "github.com/spf13/cobra"

var BuildVersion = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "streamchat",
	Short:         "Live broadcast sessions with moderated chat",
	Long:          "Starts and ends live broadcasts on the media platform, issues access tokens and relays toxicity-scored chat to every viewer.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config", "Directory containing config.yaml")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of streamchat",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	})
}

func Execute() error {
	return rootCmd.Execute()
}
