package ui

import (
	"fmt"
	"io"
	"math/big"
	"text/tabwriter"

	"celokudos/internal/kudos"
	"celokudos/internal/models"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
)

// AppName is shown in the header
const AppName = "CeloKudos"

// Header writes the app name and the wallet line. The connect prompt is
// hidden when the session was opened automatically by an embedded wallet.
func Header(w io.Writer, session *wallet.Session) {
	fmt.Fprintln(w, AppName)
	if session.AutoConnected() {
		return
	}
	if session.Connected() {
		fmt.Fprintf(w, "Connected: %s (%s)\n", session.Address().Hex(), session.Connector())
		return
	}
	fmt.Fprintln(w, "Connect a wallet with --connector env or --connector keystore")
}

// RenderKudos writes a single record
func RenderKudos(w io.Writer, record *models.Kudos, symbol string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", record.ID)
	fmt.Fprintf(tw, "From\t%s\n", record.Sender.Hex())
	fmt.Fprintf(tw, "To\t%s\n", record.Recipient.Hex())
	fmt.Fprintf(tw, "Amount\t%s %s\n", kudos.FormatAmount(record.Amount), symbol)
	fmt.Fprintf(tw, "Message\t%s\n", record.Message)
	fmt.Fprintf(tw, "Sent\t%s\n", kudos.FormatTimestamp(record.Timestamp))
	fmt.Fprintf(tw, "Visibility\t%s\n", visibility(record.IsPublic))
	tw.Flush()
}

// RenderKudosList writes records as a table
func RenderKudosList(w io.Writer, records []*models.Kudos, symbol string) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No kudos yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFROM\tTO\tAMOUNT\tSENT\tVISIBILITY\tMESSAGE")
	for _, record := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
			record.ID,
			record.Sender.Hex(),
			record.Recipient.Hex(),
			kudos.FormatAmount(record.Amount), symbol,
			kudos.FormatTimestamp(record.Timestamp),
			visibility(record.IsPublic),
			record.Message,
		)
	}
	tw.Flush()
}

// RenderStats writes the platform aggregates
func RenderStats(w io.Writer, stats *models.PlatformStats, symbol string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total kudos\t%s\n", count(stats.TotalKudos))
	fmt.Fprintf(tw, "Total amount\t%s %s\n", kudos.FormatAmount(stats.TotalAmount), symbol)
	fmt.Fprintf(tw, "Users\t%s\n", count(stats.UserCount))
	tw.Flush()
}

// RenderUserStats writes the aggregates of one address
func RenderUserStats(w io.Writer, stats *models.UserStats, symbol string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Received\t%s\t%s %s\n", count(stats.ReceivedCount), kudos.FormatAmount(stats.TotalReceived), symbol)
	fmt.Fprintf(tw, "Sent\t%s\t%s %s\n", count(stats.SentCount), kudos.FormatAmount(stats.TotalSent), symbol)
	tw.Flush()
}

// RenderResult writes the hashes of a finished submission
func RenderResult(w io.Writer, result *kudos.Result) {
	if result.Approved() {
		fmt.Fprintf(w, "Approval tx: %s\n", result.ApprovalTx.Hex())
	}
	fmt.Fprintf(w, "Send tx:     %s\n", result.SendTx.Hex())
}

// RenderUpdate writes one tracker update
func RenderUpdate(w io.Writer, update kudos.Update) {
	line := fmt.Sprintf("%-8s %s", update.Leg, update.State.Status)
	if update.State.Hash != (common.Hash{}) {
		line += " " + update.State.Hash.Hex()
	}
	if update.State.Err != nil {
		line += ": " + update.State.Err.Error()
	}
	fmt.Fprintln(w, line)
}

func visibility(public bool) string {
	if public {
		return "public"
	}
	return "private"
}

func count(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
