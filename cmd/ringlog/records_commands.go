package main

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ringlog/internal/ipc"
)

const previewRunes = 48

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List the records currently held by the log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Records()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, recordsJSON(resp.Records))
				}
				out := cmd.OutOrStdout()
				if len(resp.Records) == 0 {
					fmt.Fprintln(out, "Log is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"#", "Offset", "Size", "Data"},
					recordRows(resp.Records),
					[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit records as JSON")
	return cmd
}

func newReadCommand(ctx *commandContext) *cobra.Command {
	var record, offset uint32
	var limit int
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print the log starting at a record/offset position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Read(record, offset, limit)
				if err != nil {
					return fmt.Errorf("read record %d offset %d: %w", record, offset, err)
				}
				_, err = cmd.OutOrStdout().Write(resp.Data)
				return err
			})
		},
	}
	cmd.Flags().Uint32Var(&record, "record", 0, "Zero-based record index, oldest first")
	cmd.Flags().Uint32Var(&offset, "offset", 0, "Byte offset within the record")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum bytes to print (0 reads to the end)")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, historyEntriesJSON(resp.Entries))
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "Archive is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Recorded", "Source", "Conn", "Data"},
					historyRows(resp.Entries),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit entries as JSON")
	return cmd
}

func recordRows(records []ipc.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.Itoa(r.Index),
			strconv.FormatInt(r.Offset, 10),
			humanize.IBytes(uint64(len(r.Data))),
			previewData(r.Data),
		})
	}
	return rows
}

func historyRows(entries []ipc.HistoryEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			humanize.Time(e.RecordedAt),
			e.Source,
			shortID(e.ConnectionID),
			previewData(e.Payload),
		})
	}
	return rows
}

// previewData quotes data so terminators and control bytes stay visible.
func previewData(data []byte) string {
	if !utf8.Valid(data) {
		return fmt.Sprintf("<%d bytes binary>", len(data))
	}
	s := string(data)
	if utf8.RuneCountInString(s) > previewRunes {
		runes := []rune(s)
		return strconv.Quote(string(runes[:previewRunes])) + "..."
	}
	return strconv.Quote(s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
