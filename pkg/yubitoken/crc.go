package yubitoken

// ComputeCrc returns the value the Crc field must hold for t to pass IsCrcOk.
func ComputeCrc(t Token) uint16 {
	b := Encode(t)
	return ^crc16(b[:Size-2])
}

// IsCrcOk reports whether the stored Crc matches the other fields.
func IsCrcOk(t Token) bool {
	b := Encode(t)
	return crc16(b[:]) == CrcOkResidue
}

// CrcOk reports whether a raw 16-byte buffer carries a valid CRC.
func CrcOk(b []byte) bool {
	return len(b) == Size && crc16(b) == CrcOkResidue
}

func crc16(buf []byte) uint16 {
	crc := uint16(0xffff)
	for _, v := range buf {
		crc ^= uint16(v)
		for range 8 {
			lsb := crc & 1
			crc >>= 1
			if lsb != 0 {
				crc ^= 0x8408
			}
		}
	}
	return crc
}
