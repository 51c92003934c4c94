package tables

import "github.com/JonMunkholm/dealdesk/internal/core"

// Choices offered by the client intake form.
var (
	LoanTypes      = []string{"Purchase", "Refinance", "HELOC", "Other"}
	ClientStatuses = []string{"Lead", "Application", "Pre-Approval", "Approved", "Funded", "Declined"}
)

func init() {
	core.Register(core.Definition{
		Info: core.DatasetInfo{
			Key:         "clients",
			Label:       "Mortgage Clients",
			Description: "Borrowers and where their loans stand.",
			KeyField:    "name",
			StageField:  "status",
			ChartFields: []string{"loan_type", "status"},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "email", Type: core.FieldText, Normalizer: NormalizeEmail},
			{Name: "phone", Type: core.FieldText, Normalizer: NormalizePhone},
			{Name: "loan_type", Type: core.FieldEnum, EnumValues: LoanTypes, Normalizer: NormalizeChoice(LoanTypes)},
			{Name: "amount", Type: core.FieldNumeric, Normalizer: core.NormalizeNumber},
			{Name: "status", Type: core.FieldEnum, EnumValues: ClientStatuses, Normalizer: NormalizeChoice(ClientStatuses)},
			{Name: "notes", Type: core.FieldText},
		},
		Sample: [][]string{
			{"Dana Reyes", "dana@example.com", "(555) 201-3344", "Purchase", "425000", "Application", "First-time buyer"},
			{"Sam Okafor", "sam@example.com", "(555) 730-1188", "Refinance", "310000", "Lead", ""},
		},
	})
}
