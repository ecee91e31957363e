package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askUser string

var askCmd = &cobra.Command{
	Use:   "ask [command...]",
	Short: "Process a single command locally",
	Long: `Runs one command through the full assistant pipeline without
starting the HTTP server and prints the reply.

Examples:
  ballsy ask what time is it
  ballsy ask "what's 2 + 2"
  ballsy ask who is marie curie`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askUser, "user", "u", "1", "user ID for history and settings")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, _, cleanup, err := buildAssistant(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	text := strings.Join(args, " ")
	resp, err := svc.Process(context.Background(), askUser, text)
	if err != nil {
		return err
	}

	fmt.Println(resp.Response)
	if resp.Action != "" {
		if url, ok := resp.Data["url"]; ok {
			fmt.Printf("[%s] %s\n", resp.Action, url)
		} else if query, ok := resp.Data["query"]; ok {
			fmt.Printf("[%s] %s\n", resp.Action, query)
		} else {
			fmt.Printf("[%s]\n", resp.Action)
		}
	}
	return nil
}
