package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/linhaops/linha/internal/api"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage production records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open production records",
	RunE:  runRecordsList,
}

var recordsCancelCmd = &cobra.Command{
	Use:   "cancel [record-id]",
	Short: "Cancel an open production record",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsCancel,
}

var cancelReason string

func init() {
	recordsCmd.AddCommand(recordsListCmd, recordsCancelCmd)

	recordsCancelCmd.Flags().StringVar(&cancelReason, "motivo", "", "Cancellation reason (required)")
	recordsCancelCmd.MarkFlagRequired("motivo")
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	client := api.NewClient(apiAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	recs, err := client.ListOpenRecords(ctx)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("No open records")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPOSTO\tMATRICULA\tOPERACAO\tMODELO\tABERTO EM")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID, rec.Post, rec.Matricula, rec.Operation, rec.ModelCode,
			rec.OpenedAt.Local().Format("2006-01-02 15:04:05"))
	}
	w.Flush()
	return nil
}

func runRecordsCancel(cmd *cobra.Command, args []string) error {
	client := api.NewClient(apiAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.CancelRecord(ctx, args[0], cancelReason); err != nil {
		return err
	}

	fmt.Printf("Cancelled record %s\n", args[0])
	return nil
}
