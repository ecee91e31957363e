package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ballsy",
	Short: "Ballsy - voice assistant backend",
	Long: `Ballsy is a voice assistant backend with rule-based command
processing and LLM fallback.

Commands are matched against built-in rules first (web sites, media
searches, math, time and date); anything unmatched is answered by a
configured LLM provider (Mistral or Gemini) with a single concise
sentence.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.toml)")
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
