// Package seed provides a small sample dataset for demos and local runs.
package seed

import (
	"fmt"

	"caseboard/internal/ingest"
	"caseboard/pkg/domain"
)

// Sample rows in the shape of the historical GE action export. They run
// through the same ingestion path as uploaded files, so the stored records
// carry normalized statuses, dates and ATA chapters.
var rawActions = []ingest.Row{
	{
		"id": 87, "Subject": "Model Update", "Owner": "GE - D. Fernandez", "Program": "A320",
		"ATA Chapter": "ATA 21", "Milestone": "QG1",
		"Actions": "Review troubleshooting matrix table for ATA21",
		"Status":  "Not started", "Start date": "Mar 17, 2025",
		"Due on": "May 2, 2025", "Priority": "HIGH",
	},
	{
		"id": 88, "Subject": "Model Update", "Owner": "GE - D. Fernandez", "Program": "A320",
		"ATA Chapter": "ATA 21", "Milestone": "QG1",
		"Actions": "Deliver the updated A320/ATA21 model",
		"Status":  "In progress", "Start date": "Mar 17, 2025",
		"Due on": "May 30, 2025", "Priority": "HIGH",
	},
	{
		"id": 93, "Subject": "Development", "Owner": "GE - P. Bennetts", "Program": "A350",
		"ATA Chapter": "ATA 29", "Milestone": "QG0",
		"Actions": "Identify a QG0 date for ATA29",
		"Status":  "Not started", "Start date": "Mar 27, 2025",
		"Due on": "Apr 24, 2025", "Priority": "MEDIUM",
	},
}

var rawModels = []ingest.Row{
	{"modelId": "A320-ATA21", "program": "A320", "ata": "ATA 21"},
	{"modelId": "A350-ATA29", "program": "A350", "ata": "ATA 29"},
}

var rawLatest = []ingest.Row{
	{"modelId": "A320-ATA21", "subject": "Model Update", "milestone": "QG1", "status": "In Mpval"},
	{"modelId": "A350-ATA29", "subject": "Development", "milestone": "QG0", "status": "Scheduled"},
}

var rawLinks = []ingest.Row{
	{"actionId": "87", "modelId": "A320-ATA21"},
	{"actionId": "88", "modelId": "A320-ATA21"},
	{"actionId": "93", "modelId": "A350-ATA29"},
}

// Tables decodes the sample rows into a merge payload. Decoding is strict for
// seed data: any quarantined row is a programming error.
func Tables() (domain.TableSet, error) {
	batch := ingest.DecodeTables(map[string][]ingest.Row{
		"actions":       rawActions,
		"models":        rawModels,
		"latestByModel": rawLatest,
		"links":         rawLinks,
	})
	if len(batch.Errors) > 0 {
		return domain.TableSet{}, fmt.Errorf("seed rows failed to decode: %v", batch.Errors[0])
	}
	return batch.TableSet(), nil
}
