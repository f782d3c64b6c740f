package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/docs-rag/internal/core/retrieval"
)

// DocsProcessAction はコーパスを取り込みインデックスを更新するコマンドのアクション
func DocsProcessAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("ドキュメント取り込みを開始")

	result, err := appCtx.Container.IngestionService.Ingest(ctx)
	if err != nil {
		slog.Error("ドキュメント取り込みに失敗しました", "error", err)
		return err
	}

	fmt.Println(result.Message)
	fmt.Printf("処理済み文書: %d\n", result.ProcessedDocuments)
	fmt.Printf("チャンク数: %d\n", result.TotalChunks)
	fmt.Printf("新規記録: %d\n", result.SavedRecords)
	for _, e := range result.Errors {
		fmt.Printf("エラー: %s\n", e)
	}

	return nil
}

// DocsStatusAction はインデックス済みデータの状態を表示するコマンドのアクション
func DocsStatusAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	status, err := appCtx.Container.IngestionService.Status(ctx)
	if err != nil {
		slog.Error("状態取得に失敗しました", "error", err)
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Corpus", "Document Records", "Vector Count")
	table.Append(
		status.CorpusName,
		fmt.Sprintf("%d", status.DocumentRecords),
		fmt.Sprintf("%d", status.VectorCount),
	)
	table.Render()

	return nil
}

// DocsClearAction はインデックス済みデータを全削除するコマンドのアクション
func DocsClearAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.IngestionService.Clear(ctx)
	if err != nil {
		slog.Error("データ削除に失敗しました", "error", err)
		return err
	}

	fmt.Printf("削除した文書記録: %d\n", result.RecordsDeleted)
	if result.VectorsCleared {
		fmt.Println("ベクトルインデックスを削除しました")
	}
	for _, e := range result.Errors {
		fmt.Printf("エラー: %s\n", e)
	}

	return nil
}

// DocsSearchAction は類似チャンク検索を実行するコマンドのアクション
func DocsSearchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	query := cmd.String("query")
	limit := int(cmd.Int("limit"))
	threshold := cmd.Float("threshold")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	results, err := appCtx.Container.RetrievalService.Retrieve(ctx, query, limit, threshold)
	if err != nil {
		slog.Error("検索に失敗しました", "error", err)
		return err
	}

	if len(results) == 0 {
		fmt.Println("該当するチャンクは見つかりませんでした")
		return nil
	}

	renderSearchResults(results)
	return nil
}

// renderSearchResults は検索結果をテーブル表示します
func renderSearchResults(results []*retrieval.RetrievedContext) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Rank", "Score", "Source", "Content")

	for _, r := range results {
		table.Append(
			fmt.Sprintf("%d", r.Rank+1),
			fmt.Sprintf("%.3f", r.Score),
			r.Chunk.Source,
			truncateString(r.Chunk.Content, 60),
		)
	}

	table.Render()
}
