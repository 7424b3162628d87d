// Package ir provides the entity model shared by every reportbuilder package:
// tables, fields, filters, sorts, joins, the assembled QueryConfiguration,
// and the sealed Value type used for filter operands and result cells.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Filter values are tagged: Filter.UnmarshalJSON decodes "value" by
//     "data_type", never into an opaque any
//   - All JSON tags use snake_case, matching the report API wire format
//   - Configuration hashes use RFC 8785 canonical JSON (MarshalCanonical)
package ir
