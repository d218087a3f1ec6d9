package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumVectors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"rfc1071 example", []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}, 0x220d},
		{"empty", nil, 0xffff},
		{"single word", []byte{0x12, 0x34}, 0xedcb},
		{"odd length pads low byte", []byte{0x00, 0x01, 0xf2}, ^uint16(0x0001 + 0xf200)},
		{"end-around carry", []byte{0xff, 0xff, 0x00, 0x01}, 0xfffe},
		{
			"ipv4 header",
			[]byte{
				0x45, 0x00, 0x00, 0x73, 0x00, 0x00, 0x40, 0x00, 0x40, 0x11,
				0x00, 0x00, 0xc0, 0xa8, 0x00, 0x01, 0xc0, 0xa8, 0x00, 0xc7,
			},
			0xb861,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Checksum(tt.data), "checksum(%x)", tt.data)
		})
	}
}

func TestChecksumFolds(t *testing.T) {
	data := []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}
	sum := Checksum(data)

	withSum := append(append([]byte{}, data...), byte(sum>>8), byte(sum))
	assert.True(t, ChecksumFolds(withSum))

	withSum[0] ^= 0x01
	assert.False(t, ChecksumFolds(withSum))
}

func TestChecksumDoesNotMutateInput(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	orig := append([]byte{}, data...)
	Checksum(data)
	assert.Equal(t, orig, data)
}
