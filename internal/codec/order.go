package codec

import "encoding/binary"

// byteOrder reads fixed-width integers and appends them.
type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// orderOf widens order to a byteOrder. A nil order means little endian.
func orderOf(order binary.ByteOrder) byteOrder {
	switch order {
	case nil:
		return binary.LittleEndian
	case binary.BigEndian:
		return binary.BigEndian
	case binary.LittleEndian:
		return binary.LittleEndian
	}
	if o, ok := order.(byteOrder); ok {
		return o
	}
	if order.Uint16([]byte{0, 1}) == 1 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
