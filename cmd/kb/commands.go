package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"knowledge-base/internal/app"
)

func newIngestCmd(open backendOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Upload local files into the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(b *backend) error {
				failed := 0
				for _, path := range args {
					data, err := os.ReadFile(path)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						failed++
						continue
					}
					res, err := b.docs.Upload(cmd.Context(), app.UploadInput{
						Filename: filepath.Base(path),
						Data:     data,
					})
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						failed++
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks\n", res.Filename, res.Chunks)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files failed", failed, len(args))
				}
				return nil
			})
		},
	}
}

func newAskCmd(open backendOpener) *cobra.Command {
	var numSources int
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the uploaded documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(b *backend) error {
				res, err := b.chat.Query(cmd.Context(), app.QueryInput{Question: args[0], NumSources: numSources})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, res.Answer)
				if len(res.Sources) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Sources:")
					for _, s := range res.Sources {
						fmt.Fprintf(out, "  [%d] %s #%d\n", s.SourceNumber, s.Filename, s.ChunkIndex)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&numSources, "sources", "n", app.DefaultNumSources, "number of chunks to retrieve")
	return cmd
}

func newDocsCmd(open backendOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List uploaded documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, open, func(b *backend) error {
				docs, err := b.docs.List(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tFILENAME\tTYPE\tCHUNKS\tUPLOADED")
				for _, d := range docs {
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", d.ID, d.Filename, d.FileType, d.NumChunks, d.UploadDate.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
}

func newRmCmd(open backendOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid document id %q", args[0])
			}
			return withBackend(cmd, open, func(b *backend) error {
				res, err := b.docs.Delete(cmd.Context(), uint(id))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				return nil
			})
		},
	}
}

func newHistoryCmd(open backendOpener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent questions and answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, open, func(b *backend) error {
				entries, err := b.chat.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, e := range entries {
					fmt.Fprintf(out, "[%s] Q: %s\n", e.Timestamp.Format(time.RFC3339), e.Question)
					fmt.Fprintf(out, "A: %s\n\n", e.Answer)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "number of entries to show")
	return cmd
}
