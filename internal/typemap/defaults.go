package typemap

// Default returns the built-in mapping used when no mapping file is available.
// It covers PostgreSQL, MySQL/TiDB, and SQLite type names as reported by the
// introspection provider (lowercase, without size specifiers).
func Default() *Mapping {
	return New(defaultTypeMap(), "", nil)
}

// SQLiteOverrides returns the entries layered over the built-in mapping when it
// is used against SQLite. INTEGER and REAL are 64-bit storage classes there,
// while the built-in mapping follows PostgreSQL's 32-bit integer and real.
func SQLiteOverrides() map[string]string {
	return map[string]string{
		"integer": "i64",
		"real":    "f64",
	}
}

func defaultTypeMap() map[string]string {
	return map[string]string{
		// Integers
		"int2":        "i16",
		"smallint":    "i16",
		"smallserial": "i16",
		"int4":        "i32",
		"int":         "i32",
		"integer":     "i32",
		"mediumint":   "i32",
		"serial":      "i32",
		"serial4":     "i32",
		"int8":        "i64",
		"bigint":      "i64",
		"bigserial":   "i64",
		"serial8":     "i64",
		"tinyint":     "i8",
		"year":        "i16",
		"bit":         "u64",
		"oid":         "u32",

		// MySQL unsigned integers
		"tinyint unsigned":   "u8",
		"smallint unsigned":  "u16",
		"mediumint unsigned": "u32",
		"int unsigned":       "u32",
		"integer unsigned":   "u32",
		"bigint unsigned":    "u64",

		// Floating and fixed point
		"float4":           "f32",
		"real":             "f32",
		"float":            "f32",
		"float8":           "f64",
		"double":           "f64",
		"double precision": "f64",
		"numeric":          "rust_decimal::Decimal",
		"decimal":          "rust_decimal::Decimal",
		"money":            "rust_decimal::Decimal",

		// Boolean
		"bool":    "bool",
		"boolean": "bool",

		// Text
		"text":              "String",
		"varchar":           "String",
		"character varying": "String",
		"char":              "String",
		"character":         "String",
		"bpchar":            "String",
		"citext":            "String",
		"name":              "String",
		"tinytext":          "String",
		"mediumtext":        "String",
		"longtext":          "String",
		"enum":              "String",
		"set":               "String",

		// Binary
		"bytea":      "Vec<u8>",
		"blob":       "Vec<u8>",
		"tinyblob":   "Vec<u8>",
		"mediumblob": "Vec<u8>",
		"longblob":   "Vec<u8>",
		"binary":     "Vec<u8>",
		"varbinary":  "Vec<u8>",

		// Identifiers and structured values
		"uuid":  "uuid::Uuid",
		"json":  "serde_json::Value",
		"jsonb": "serde_json::Value",

		// Date and time
		"timestamp":                   "chrono::NaiveDateTime",
		"timestamp without time zone": "chrono::NaiveDateTime",
		"datetime":                    "chrono::NaiveDateTime",
		"timestamptz":                 "chrono::DateTime<chrono::Utc>",
		"timestamp with time zone":    "chrono::DateTime<chrono::Utc>",
		"date":                        "chrono::NaiveDate",
		"time":                        "chrono::NaiveTime",
		"time without time zone":      "chrono::NaiveTime",
		"interval":                    "sqlx::postgres::types::PgInterval",

		// Network
		"inet":    "ipnetwork::IpNetwork",
		"cidr":    "ipnetwork::IpNetwork",
		"macaddr": "mac_address::MacAddress",
	}
}
