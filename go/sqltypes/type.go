/*
Copyright 2019 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package sqltypes

import (
	"fmt"
	"strings"
)

// Type is the MySQL-level type of a value. The numeric values and
// the flag bits mirror the vitess query protocol so that plans can
// be compared against those produced by vtgate.
type Type int32

// These bit flags can be used to query on the
// common properties of types.
const (
	flagIsIntegral = 256
	flagIsUnsigned = 512
	flagIsFloat    = 1024
	flagIsQuoted   = 2048
	flagIsText     = 4096
	flagIsBinary   = 8192
)

// Vitess data types. These are idiomatically
// named synonyms for the protocol types.
const (
	Null       Type = 0
	Int8       Type = 1 | flagIsIntegral
	Uint8      Type = 2 | flagIsIntegral | flagIsUnsigned
	Int16      Type = 3 | flagIsIntegral
	Uint16     Type = 4 | flagIsIntegral | flagIsUnsigned
	Int24      Type = 5 | flagIsIntegral
	Uint24     Type = 6 | flagIsIntegral | flagIsUnsigned
	Int32      Type = 7 | flagIsIntegral
	Uint32     Type = 8 | flagIsIntegral | flagIsUnsigned
	Int64      Type = 9 | flagIsIntegral
	Uint64     Type = 10 | flagIsIntegral | flagIsUnsigned
	Float32    Type = 11 | flagIsFloat
	Float64    Type = 12 | flagIsFloat
	Timestamp  Type = 13 | flagIsQuoted
	Date       Type = 14 | flagIsQuoted
	Time       Type = 15 | flagIsQuoted
	Datetime   Type = 16 | flagIsQuoted
	Year       Type = 17 | flagIsIntegral | flagIsUnsigned
	Decimal    Type = 18
	Text       Type = 19 | flagIsQuoted | flagIsText
	Blob       Type = 20 | flagIsQuoted | flagIsBinary
	VarChar    Type = 21 | flagIsQuoted | flagIsText
	VarBinary  Type = 22 | flagIsQuoted | flagIsBinary
	Char       Type = 23 | flagIsQuoted | flagIsText
	Binary     Type = 24 | flagIsQuoted | flagIsBinary
	Bit        Type = 25 | flagIsQuoted
	Enum       Type = 26 | flagIsQuoted
	Set        Type = 27 | flagIsQuoted
	Tuple      Type = 28
	Geometry   Type = 29 | flagIsQuoted
	TypeJSON   Type = 30 | flagIsQuoted
	Expression Type = 31
)

var typeNames = map[Type]string{
	Null:       "NULL_TYPE",
	Int8:       "INT8",
	Uint8:      "UINT8",
	Int16:      "INT16",
	Uint16:     "UINT16",
	Int24:      "INT24",
	Uint24:     "UINT24",
	Int32:      "INT32",
	Uint32:     "UINT32",
	Int64:      "INT64",
	Uint64:     "UINT64",
	Float32:    "FLOAT32",
	Float64:    "FLOAT64",
	Timestamp:  "TIMESTAMP",
	Date:       "DATE",
	Time:       "TIME",
	Datetime:   "DATETIME",
	Year:       "YEAR",
	Decimal:    "DECIMAL",
	Text:       "TEXT",
	Blob:       "BLOB",
	VarChar:    "VARCHAR",
	VarBinary:  "VARBINARY",
	Char:       "CHAR",
	Binary:     "BINARY",
	Bit:        "BIT",
	Enum:       "ENUM",
	Set:        "SET",
	Tuple:      "TUPLE",
	Geometry:   "GEOMETRY",
	TypeJSON:   "JSON",
	Expression: "EXPRESSION",
}

var namesToType = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for typ, name := range typeNames {
		m[name] = typ
	}
	return m
}()

// String returns the protocol name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// TypeFromString parses a type name as printed by String.
// Names are matched case-insensitively.
func TypeFromString(name string) (Type, error) {
	if typ, ok := namesToType[strings.ToUpper(name)]; ok {
		return typ, nil
	}
	return Null, fmt.Errorf("unknown type: %s", name)
}

// IsIntegral returns true if Type is an integral
// (signed/unsigned) that can be represented using
// up to 64 binary bits.
func IsIntegral(t Type) bool {
	return int(t)&flagIsIntegral == flagIsIntegral
}

// IsSigned returns true if Type is a signed integral.
func IsSigned(t Type) bool {
	return int(t)&(flagIsIntegral|flagIsUnsigned) == flagIsIntegral
}

// IsUnsigned returns true if Type is an unsigned integral.
// Caution: this is not the same as !IsSigned.
func IsUnsigned(t Type) bool {
	return int(t)&(flagIsIntegral|flagIsUnsigned) == flagIsIntegral|flagIsUnsigned
}

// IsFloat returns true is Type is a floating point.
func IsFloat(t Type) bool {
	return int(t)&flagIsFloat == flagIsFloat
}

// IsQuoted returns true if Type is a quoted text or binary.
func IsQuoted(t Type) bool {
	return int(t)&flagIsQuoted == flagIsQuoted
}

// IsText returns true if Type is a text.
func IsText(t Type) bool {
	return int(t)&flagIsText == flagIsText
}

// IsBinary returns true if Type is a binary.
func IsBinary(t Type) bool {
	return int(t)&flagIsBinary == flagIsBinary
}

// IsNumber returns true if the type is any type of number.
func IsNumber(t Type) bool {
	return IsIntegral(t) || IsFloat(t) || t == Decimal
}

// mysqlTypes maps a lowercased MySQL column type, as found in
// information_schema.columns.data_type, to a Type.
var mysqlTypes = map[string]Type{
	"tinyint":    Int8,
	"smallint":   Int16,
	"mediumint":  Int24,
	"int":        Int32,
	"integer":    Int32,
	"bigint":     Int64,
	"float":      Float32,
	"double":     Float64,
	"real":       Float64,
	"decimal":    Decimal,
	"numeric":    Decimal,
	"timestamp":  Timestamp,
	"date":       Date,
	"time":       Time,
	"datetime":   Datetime,
	"year":       Year,
	"tinytext":   Text,
	"text":       Text,
	"mediumtext": Text,
	"longtext":   Text,
	"tinyblob":   Blob,
	"blob":       Blob,
	"mediumblob": Blob,
	"longblob":   Blob,
	"varchar":    VarChar,
	"varbinary":  VarBinary,
	"char":       Char,
	"binary":     Binary,
	"bit":        Bit,
	"enum":       Enum,
	"set":        Set,
	"geometry":   Geometry,
	"json":       TypeJSON,
}

// MySQLToType computes the Type from a MySQL data type name.
// Unknown names map to VarBinary, which is never compared
// through a collation.
func MySQLToType(dataType string) Type {
	if typ, ok := mysqlTypes[strings.ToLower(strings.TrimSpace(dataType))]; ok {
		return typ
	}
	return VarBinary
}
