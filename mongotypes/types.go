// Package mongotypes provides the declared field types found in Studio 3T schema exports of MongoDB collections.
package mongotypes

const (
	// ObjectID is a BSON ObjectId, encoded in change-data-capture JSON as {"$oid": "..."}.
	ObjectID = "ObjectId"
	// Array is a BSON array.
	Array = "Array"
	// Date is a BSON date, encoded in change-data-capture JSON as {"$date": ...}.
	Date = "Date"
	// Object is an embedded document. Its leaves are exported as separate dotted columns.
	Object = "Object"
)

// Wrapper keys used by extended JSON for types that do not map to a JSON primitive.
const (
	OIDKey  = "$oid"
	DateKey = "$date"
)

// IsContainer reports whether fieldType describes a structural container rather than a leaf value.
func IsContainer(fieldType string) bool {
	return fieldType == Object
}

// WrapperKey returns the extended JSON key wrapping the primitive value of fieldType, if any.
func WrapperKey(fieldType string) (string, bool) {
	switch fieldType {
	case ObjectID:
		return OIDKey, true
	case Date:
		return DateKey, true
	}
	return "", false
}
