// Package archive implements the fixed-field-order binary codec the way
// store uses to freeze a Way's vertices and tags into the bytes kept in
// the paged storage. A BinarySchema walks a struct's
// fields in a declared order and serializes each with raw, host-endian
// encoding - no self-describing wire format, no reflection-free codegen,
// just the field order the caller wrote down.
package archive

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/pkg/errors"
)

// Datatype names the physical encoding a BinaryDataItem field is stored
// with.
type Datatype int

const (
	DatatypeByte Datatype = iota
	DatatypeInt16
	DatatypeInt24
	DatatypeInt32
	DatatypeInt64
	DatatypeUint64
	DatatypeFloat32
	DatatypeFloat64
)

// BinaryItem is one field (or nested collection) of a BinarySchema.
type BinaryItem interface {
	Write(object any, data []byte, index int) (int, error)
	Read(object any, data []byte, index int) (int, error)
}

// BinarySchema describes a struct's on-disk layout as an ordered list of
// items. Fields are written and read in exactly the order given.
type BinarySchema struct {
	Items []BinaryItem
}

func (b *BinarySchema) Write(object any, data []byte, index int) (int, error) {
	var err error
	for _, item := range b.Items {
		index, err = item.Write(object, data, index)
		if err != nil {
			return -1, err
		}
	}
	return index, nil
}

func (b *BinarySchema) Read(object any, data []byte, index int) (int, error) {
	var err error
	for _, item := range b.Items {
		index, err = item.Read(object, data, index)
		if err != nil {
			return -1, err
		}
	}
	return index, nil
}

// BinaryDataItem is a single fixed-width scalar field.
type BinaryDataItem struct {
	FieldName  string
	BinaryType Datatype
}

func (b *BinaryDataItem) Write(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	return writeBinaryValue(b.BinaryType, b.FieldName, field, data, index)
}

func (b *BinaryDataItem) Read(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	return readBinaryValue(b.BinaryType, b.FieldName, field, data, index)
}

// BinaryStringItem is a variable-length string field, stored as an 8-byte
// unsigned length prefix followed by the raw bytes - no terminator, no
// escaping.
type BinaryStringItem struct {
	FieldName string
}

func (b *BinaryStringItem) Write(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	s := field.String()
	binary.LittleEndian.PutUint64(data[index:], uint64(len(s)))
	index += 8
	copy(data[index:], s)
	index += len(s)
	return index, nil
}

func (b *BinaryStringItem) Read(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	length := int(binary.LittleEndian.Uint64(data[index:]))
	index += 8
	field.SetString(string(data[index : index+length]))
	index += length
	return index, nil
}

// BinaryRawCollectionItem is a length-prefixed array of a single scalar
// datatype, e.g. a slice of uint64 ids.
type BinaryRawCollectionItem struct {
	FieldName  string
	BinaryType Datatype
}

func (b *BinaryRawCollectionItem) Write(object any, data []byte, index int) (int, error) {
	slice := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	if err := requireSliceOrArray(slice, b.FieldName, object); err != nil {
		return -1, err
	}

	binary.LittleEndian.PutUint64(data[index:], uint64(slice.Len()))
	index += 8

	var err error
	for i := 0; i < slice.Len(); i++ {
		index, err = writeBinaryValue(b.BinaryType, b.FieldName, slice.Index(i), data, index)
		if err != nil {
			return -1, err
		}
	}
	return index, nil
}

func (b *BinaryRawCollectionItem) Read(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	if err := requireSliceOrArray(field, b.FieldName, object); err != nil {
		return -1, err
	}

	length := int(binary.LittleEndian.Uint64(data[index:]))
	index += 8

	slice := reflect.MakeSlice(field.Type(), length, length)
	field.Set(slice)

	var err error
	for i := 0; i < length; i++ {
		index, err = readBinaryValue(b.BinaryType, b.FieldName, slice.Index(i), data, index)
		if err != nil {
			return -1, err
		}
	}
	return index, nil
}

// BinaryCollectionItem is a length-prefixed array of structs, each
// serialized with its own nested schema.
type BinaryCollectionItem struct {
	FieldName  string
	ItemSchema BinarySchema
}

func (b *BinaryCollectionItem) Write(object any, data []byte, index int) (int, error) {
	slice := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	if err := requireSliceOrArray(slice, b.FieldName, object); err != nil {
		return -1, err
	}

	binary.LittleEndian.PutUint64(data[index:], uint64(slice.Len()))
	index += 8

	var err error
	for i := 0; i < slice.Len(); i++ {
		index, err = b.ItemSchema.Write(slice.Index(i).Interface(), data, index)
		if err != nil {
			return -1, err
		}
	}
	return index, nil
}

func (b *BinaryCollectionItem) Read(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	if err := requireSliceOrArray(field, b.FieldName, object); err != nil {
		return -1, err
	}

	length := int(binary.LittleEndian.Uint64(data[index:]))
	index += 8

	slice := reflect.MakeSlice(field.Type(), length, length)
	field.Set(slice)

	var err error
	for i := 0; i < length; i++ {
		index, err = b.ItemSchema.Read(slice.Index(i).Addr().Interface(), data, index)
		if err != nil {
			return -1, err
		}
	}
	return index, nil
}

func requireSliceOrArray(v reflect.Value, fieldName string, object any) error {
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return errors.Errorf("field %s of %v is not a slice or array (got %v)", fieldName, object, v.Kind())
	}
	return nil
}

func writeBinaryValue(binaryType Datatype, fieldName string, value reflect.Value, data []byte, index int) (int, error) {
	switch binaryType {
	case DatatypeByte:
		data[index] = byte(getUint64FromValue(value))
		index += 1
	case DatatypeInt16:
		binary.LittleEndian.PutUint16(data[index:], uint16(getUint64FromValue(value)))
		index += 2
	case DatatypeInt24:
		v := getUint64FromValue(value)
		data[index] = byte(v)
		data[index+1] = byte(v >> 8)
		data[index+2] = byte(v >> 16)
		index += 3
	case DatatypeInt32:
		binary.LittleEndian.PutUint32(data[index:], uint32(getUint64FromValue(value)))
		index += 4
	case DatatypeInt64, DatatypeUint64:
		binary.LittleEndian.PutUint64(data[index:], getUint64FromValue(value))
		index += 8
	case DatatypeFloat32:
		binary.LittleEndian.PutUint32(data[index:], math.Float32bits(float32(value.Float())))
		index += 4
	case DatatypeFloat64:
		binary.LittleEndian.PutUint64(data[index:], math.Float64bits(value.Float()))
		index += 8
	default:
		return -1, errors.Errorf("unsupported datatype %d for field %s", binaryType, fieldName)
	}
	return index, nil
}

func readBinaryValue(binaryType Datatype, fieldName string, value reflect.Value, data []byte, index int) (int, error) {
	switch binaryType {
	case DatatypeByte:
		value.Set(reflect.ValueOf(data[index]).Convert(value.Type()))
		index += 1
	case DatatypeInt16:
		value.Set(reflect.ValueOf(int16(binary.LittleEndian.Uint16(data[index:]))).Convert(value.Type()))
		index += 2
	case DatatypeInt24:
		d := data[index:]
		value.Set(reflect.ValueOf(int(uint32(d[0]) | uint32(d[1])<<8 | uint32(d[2])<<16)).Convert(value.Type()))
		index += 3
	case DatatypeInt32:
		value.Set(reflect.ValueOf(int32(binary.LittleEndian.Uint32(data[index:]))).Convert(value.Type()))
		index += 4
	case DatatypeInt64:
		value.Set(reflect.ValueOf(int64(binary.LittleEndian.Uint64(data[index:]))).Convert(value.Type()))
		index += 8
	case DatatypeUint64:
		value.Set(reflect.ValueOf(binary.LittleEndian.Uint64(data[index:])).Convert(value.Type()))
		index += 8
	case DatatypeFloat32:
		if value.Kind() == reflect.Float32 {
			value.Set(reflect.ValueOf(math.Float32frombits(binary.LittleEndian.Uint32(data[index:]))))
		} else {
			value.Set(reflect.ValueOf(float64(math.Float32frombits(binary.LittleEndian.Uint32(data[index:])))))
		}
		index += 4
	case DatatypeFloat64:
		value.Set(reflect.ValueOf(math.Float64frombits(binary.LittleEndian.Uint64(data[index:]))))
		index += 8
	default:
		return -1, errors.Errorf("unsupported datatype %d for field %s", binaryType, fieldName)
	}
	return index, nil
}

func getUint64FromValue(value reflect.Value) uint64 {
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(value.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Uint()
	default:
		panic("unsupported value type " + value.Kind().String() + " to convert to uint")
	}
}
