package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/docs-rag/cmd/docs-rag/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "docs-rag",
		Usage: "ドキュメントコーパス向け RAG チャットボット基盤",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "サーバ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.IntFlag{
								Name:  "port",
								Usage: "HTTPポート（省略時は環境変数またはデフォルトの8080）",
							},
						},
						Action: commands.ServerStartAction,
					},
				},
			},
			{
				Name:  "docs",
				Usage: "ドキュメント管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "process",
						Usage: "コーパスを取り込みベクトルインデックスを更新",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.DocsProcessAction,
					},
					{
						Name:  "status",
						Usage: "インデックス済みデータの状態を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.DocsStatusAction,
					},
					{
						Name:  "clear",
						Usage: "インデックス済みデータを全削除",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
						},
						Action: commands.DocsClearAction,
					},
					{
						Name:  "search",
						Usage: "類似チャンク検索を実行",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "query",
								Usage:    "検索クエリ",
								Required: true,
							},
							&cli.IntFlag{
								Name:  "limit",
								Usage: "取得件数の上限",
								Value: 5,
							},
							&cli.FloatFlag{
								Name:  "threshold",
								Usage: "最小コサイン類似度 (0〜1)",
								Value: 0.7,
							},
						},
						Action: commands.DocsSearchAction,
					},
				},
			},
			{
				Name:  "chat",
				Usage: "チャットコマンド",
				Commands: []*cli.Command{
					{
						Name:  "ask",
						Usage: "質問して回答を得る",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "message",
								Usage:    "質問文",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "session",
								Usage: "セッションID（省略時は新規発行）",
							},
						},
						Action: commands.ChatAskAction,
					},
					{
						Name:  "history",
						Usage: "セッションの会話履歴を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "session",
								Usage:    "セッションID",
								Required: true,
							},
						},
						Action: commands.ChatHistoryAction,
					},
					{
						Name:  "delete-session",
						Usage: "セッションの会話履歴を削除",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "session",
								Usage:    "セッションID",
								Required: true,
							},
						},
						Action: commands.ChatDeleteSessionAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
