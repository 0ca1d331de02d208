package debug

import (
	"encoding/json"
	"log/slog"

	"celokudos/internal/kudos"
	"celokudos/internal/models"
)

// skipped marks an approval leg that was not needed
const skipped = "skipped"

// PrintKudos prints the kudos record in JSON format
func PrintKudos(record *models.Kudos) {
	jsonData, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal kudos to JSON", "error", err)
		return
	}

	slog.Debug("Kudos record details", "json", string(jsonData))
}

// Legs maps each transaction leg of a submission to its hash, or to
// "skipped" for an approval the allowance made unnecessary
func Legs(result *kudos.Result) map[kudos.Leg]string {
	approval := skipped
	if result.Approved() {
		approval = result.ApprovalTx.Hex()
	}
	return map[kudos.Leg]string{
		kudos.LegApproval: approval,
		kudos.LegSend:     result.SendTx.Hex(),
	}
}

// PrintResult logs one line per leg of the submission
func PrintResult(result *kudos.Result) {
	if result == nil {
		return
	}

	legs := Legs(result)
	for _, leg := range []kudos.Leg{kudos.LegApproval, kudos.LegSend} {
		slog.Debug("Submission leg",
			"submission_id", result.ID.String(),
			"leg", string(leg),
			"tx_hash", legs[leg],
			"amount", kudos.FormatAmount(result.Amount),
		)
	}
}
