package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wenzapen/unicrawler/cmd/crawl"
	"github.com/wenzapen/unicrawler/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version",
	Long:  "print version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Printer()
	},
}

func Execute() {
	var rootCmd = &cobra.Command{Use: "unicrawler"}
	rootCmd.AddCommand(crawl.CrawlCmd, versionCmd)
	rootCmd.Execute()
}
