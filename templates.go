package jsonextract

import (
	"github.com/spandigital/jsonextract/mongotypes"
)

// documentColumn is the change-data-capture column holding the JSON encoded record.
const documentColumn = "after"

// Extraction functions used for the generated fragments.
const (
	jsonExtract      = "JSON_EXTRACT"
	jsonExtractArray = "JSON_EXTRACT_ARRAY"
)

// extractFunctions maps declared types to the extraction function used for them.
// Types not listed use jsonExtract.
var extractFunctions = map[string]string{
	mongotypes.Array: jsonExtractArray,
}

// fixedAliases maps declared types whose fragment alias does not follow the column name.
var fixedAliases = map[string]string{
	mongotypes.ObjectID: "ObjectId",
}
