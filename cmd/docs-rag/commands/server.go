package commands

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/jinford/docs-rag/internal/interface/api"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	port := int(cmd.Int("port"))

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if port <= 0 {
		port = appCtx.Config.HTTP.Port
	}

	server := api.NewServer(
		appCtx.Container.ChatService,
		appCtx.Container.IngestionService,
		appCtx.Container.RetrievalService,
		api.WithPort(port),
		api.WithAllowedOrigins(appCtx.Config.HTTP.AllowedOrigins),
		api.WithMaxRetrievedDocs(appCtx.Config.Chat.MaxRetrievedDocs),
		api.WithServerLogger(appCtx.Logger()),
	)

	slog.Info("HTTPサーバを起動します", "port", port)
	if err := server.Start(ctx); err != nil {
		slog.Error("HTTPサーバの実行に失敗しました", "error", err)
		return err
	}

	return nil
}
