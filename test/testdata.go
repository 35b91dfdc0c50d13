package test

import (
	"github.com/spandigital/jsonextract/mongotypes"
	"github.com/spandigital/jsonextract/schema"
)

// NewOrdersSchema returns a Studio 3T export of an orders collection with nested documents.
func NewOrdersSchema() schema.Schema {
	return schema.Schema{
		{
			Name:      "_id",
			FieldType: mongotypes.ObjectID,
		},
		{
			Name:      "customer",
			FieldType: mongotypes.Object,
		},
		{
			Name:      "customer.name",
			FieldType: "String",
		},
		{
			Name:      "customer.address",
			FieldType: mongotypes.Object,
		},
		{
			Name:      "customer.address.city",
			FieldType: "String",
		},
		{
			Name:      "items",
			FieldType: mongotypes.Array,
		},
		{
			Name:      "total",
			FieldType: "Double",
		},
		{
			Name:      "created_at",
			FieldType: mongotypes.Date,
		},
	}
}

// OrdersSQL is the output generated for NewOrdersSchema.
const OrdersSQL = `JSON_EXTRACT(after, "$._id['$oid']" AS ObjectId,
JSON_EXTRACT(after, "$.customer['name']" AS name,
JSON_EXTRACT(after, "$.customer['address']['city']" AS city,
JSON_EXTRACT_ARRAY(after, "$.items" AS items,
JSON_EXTRACT(after, "$.total" AS total,
JSON_EXTRACT(after, "$.created_at['$date']" AS created_at,`

// OrdersCSV is NewOrdersSchema as exported by Studio 3T, with its extra columns.
const OrdersCSV = `name,field_type,count,probability
_id,ObjectId,120,1
customer,Object,120,1
customer.name,String,120,1
customer.address,Object,98,0.82
customer.address.city,String,98,0.82
items,Array,120,1
total,Double,120,1
created_at,Date,120,1
`
