package tables

import "github.com/JonMunkholm/dealdesk/internal/core"

// DealStages are the pipeline stages, earliest first.
var DealStages = []string{"Early Contact", "Lead", "Review", "LOI", "Diligence", "Term Sheet"}

func init() {
	core.Register(core.Definition{
		Info: core.DatasetInfo{
			Key:         "deals",
			Label:       "Deal Pipeline",
			Description: "Advisory projects from first contact to close.",
			KeyField:    "Project Name",
			StageField:  "Stage",
			ChartFields: []string{"Stage", "Type"},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "Project Name", Type: core.FieldText, Required: true},
			{Name: "Size", Type: core.FieldText},
			{Name: "Seller", Type: core.FieldText},
			{Name: "Source", Type: core.FieldText},
			{Name: "Stage", Type: core.FieldEnum, EnumValues: DealStages, Required: true},
			{Name: "Type", Type: core.FieldText},
			{Name: "Deadline", Type: core.FieldDate, Normalizer: core.NormalizeDate},
			{Name: "Deal Lead", Type: core.FieldText},
			{Name: "Follow-up", Type: core.FieldText},
			{Name: "Comments", Type: core.FieldText},
		},
		Sample: [][]string{
			{"Project Q", "$5M", "John Smith", "Inbound", "Lead", "SaaS", "2025-09-01", "Alex", "Next week", ""},
			{"AlphaTech", "$12M", "CEO Email", "Cold Outreach", "Review", "AgriTech", "2025-08-15", "Jamie", "Pending NDA", ""},
			{"GreenFields", "$8M", "Broker", "Warm Intro", "LOI", "Healthcare", "2025-10-10", "Taylor", "Setup meeting", ""},
		},
	})
}
