package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spigell/resume-extractor/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]...",
	Short: "Send messages to the agent in one conversation and print the replies",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		chat(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().BoolP("new-session", "n", false, "do not reuse the persisted session")
}

func chat(cmd *cobra.Command, messages []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	manager, err := newManager(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the conversation", zap.Error(err))
	}

	newSession, _ := cmd.Flags().GetBool("new-session")

	session, err := manager.CreateOrLoad(ctx, config.Batch.ReuseSession && !newSession)
	if err != nil {
		logger.Fatal("opening a session", zap.Error(err))
	}

	turns, err := manager.RunRounds(ctx, session, messages)
	for _, turn := range turns {
		fmt.Printf("[%d] > %s\n%s\n\n", turn.Index, turn.Request, turn.Reply)
	}
	if err != nil {
		logger.Fatal("conversation stopped", zap.Error(err), zap.Int("completed", len(turns)))
	}
}
