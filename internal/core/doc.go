// Package core holds the record store, the CSV serializer, the single-record
// editor and the grouping projector, plus the Service that hosts one store
// per registered dataset.
//
// Nothing here knows about HTTP or terminals; the web server and the CLI
// are thin layers over the same Service.
//
// # Values
//
// Every cell is a [Value] that keeps the exact text it was read from. Kinds
// (string, number, date) are inferred for convenience, but equality is text
// equality. That is what lets an exported table re-import to an equal store.
//
// # Datasets
//
// Datasets are registered at init time using [Register]:
//
//	core.Register(core.Definition{
//	    Info: core.DatasetInfo{Key: "deals", KeyField: "Project Name", StageField: "Stage"},
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "Project Name", Required: true},
//	        {Name: "Stage", Type: core.FieldEnum, EnumValues: []string{"Lead", "LOI"}},
//	    },
//	})
//
// More can be loaded from YAML with [LoadDefinitions].
//
// # Editing
//
// An edit names a record by its key field and carries field updates. The
// first record holding the key wins. An edit either applies completely or
// not at all, and never creates a record.
//
// # Errors
//
// Errors wrap one of [ErrEmptyInput], [ErrFormat], [ErrNotFound], [ErrIndex]
// or [ErrUnknownDataset]. [ErrorKind] names the category and [MapError]
// turns any error into a [UserMessage] with a support code.
package core
