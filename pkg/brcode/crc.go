package brcode

// CRC-16/CCITT-FALSE: polynomial 0x1021, initial value 0xFFFF, MSB first,
// no reflection, no final XOR.
const (
	crcPolynomial uint16 = 0x1021
	crcInit       uint16 = 0xFFFF
)

var crcTable = func() [256]uint16 {
	var table [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// Checksum16 computes the CRC-16/CCITT-FALSE of data.
func Checksum16(data []byte) uint16 {
	crc := crcInit
	for _, b := range data {
		crc = (crc << 8) ^ crcTable[byte(crc>>8)^b]
	}
	return crc
}

const hexDigits = "0123456789ABCDEF"

// ChecksumHex returns the checksum of data as four uppercase hex digits.
func ChecksumHex(data []byte) string {
	crc := Checksum16(data)
	return string([]byte{
		hexDigits[crc>>12&0xF],
		hexDigits[crc>>8&0xF],
		hexDigits[crc>>4&0xF],
		hexDigits[crc&0xF],
	})
}
