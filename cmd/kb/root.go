package main

import (
	"context"

	"github.com/spf13/cobra"

	"knowledge-base/internal/app"
	"knowledge-base/internal/bootstrap"
	"knowledge-base/internal/model"
)

type documentService interface {
	Upload(ctx context.Context, input app.UploadInput) (*app.UploadResult, error)
	List(ctx context.Context) ([]model.Document, error)
	Delete(ctx context.Context, id uint) (*app.DeleteResult, error)
}

type chatService interface {
	Query(ctx context.Context, input app.QueryInput) (*app.QueryResult, error)
	History(ctx context.Context, limit int) ([]model.HistoryEntry, error)
}

type backend struct {
	docs  documentService
	chat  chatService
	close func() error
}

type backendOpener func(ctx context.Context) (*backend, error)

func openBackend(ctx context.Context) (*backend, error) {
	a, err := bootstrap.New(ctx, bootstrap.Options{DisableWorker: true})
	if err != nil {
		return nil, err
	}
	return &backend{docs: a.Documents, chat: a.Chat, close: a.Close}, nil
}

func newRootCmd(open backendOpener) *cobra.Command {
	root := &cobra.Command{
		Use:          "kb",
		Short:        "Manage and query the AI knowledge base",
		SilenceUsage: true,
	}
	root.AddCommand(
		newIngestCmd(open),
		newAskCmd(open),
		newDocsCmd(open),
		newRmCmd(open),
		newHistoryCmd(open),
	)
	return root
}

// withBackend opens the services for the duration of fn.
func withBackend(cmd *cobra.Command, open backendOpener, fn func(b *backend) error) error {
	b, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if b.close != nil {
			_ = b.close()
		}
	}()
	return fn(b)
}
