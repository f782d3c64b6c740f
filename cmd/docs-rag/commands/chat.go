package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	"github.com/jinford/docs-rag/internal/core/chat"
)

// ChatAskAction は質問して回答を得るコマンドのアクション
func ChatAskAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	message := cmd.String("message")
	session := cmd.String("session")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	sessionID := mo.None[string]()
	if session != "" {
		sessionID = mo.Some(session)
	}

	result, err := appCtx.Container.ChatService.Answer(ctx, chat.AskParams{
		Message:        message,
		SessionID:      sessionID,
		MaxContextDocs: appCtx.Config.Chat.MaxRetrievedDocs,
	})
	if err != nil {
		slog.Error("回答生成に失敗しました", "error", err)
		return err
	}

	fmt.Println(result.Response)
	fmt.Println()
	fmt.Printf("セッションID: %s\n", result.SessionID)
	if len(result.Sources) > 0 {
		fmt.Printf("参照ソース: %s\n", strings.Join(result.Sources, ", "))
	}

	return nil
}

// ChatHistoryAction はセッションの会話履歴を表示するコマンドのアクション
func ChatHistoryAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	session := cmd.String("session")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	turns, err := appCtx.Container.ChatService.History(ctx, session)
	if err != nil {
		slog.Error("会話履歴の取得に失敗しました", "error", err)
		return err
	}

	if len(turns) == 0 {
		fmt.Println("会話履歴はありません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Created At", "User Message", "Bot Response", "Sources")

	for _, turn := range turns {
		table.Append(
			turn.CreatedAt.Format("2006-01-02 15:04"),
			truncateString(turn.UserMessage, 40),
			truncateString(turn.BotResponse, 40),
			strings.Join(turn.CitedSources, ", "),
		)
	}

	table.Render()
	return nil
}

// ChatDeleteSessionAction はセッションの会話履歴を削除するコマンドのアクション
func ChatDeleteSessionAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	session := cmd.String("session")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	deleted, err := appCtx.Container.ChatService.DeleteSession(ctx, session)
	if err != nil {
		slog.Error("セッション削除に失敗しました", "error", err)
		return err
	}

	fmt.Printf("削除した会話: %d件\n", deleted)
	return nil
}
