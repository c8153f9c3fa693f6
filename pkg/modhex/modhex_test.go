package modhex_test

import (
	"encoding/hex"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ykauth/pkg/modhex"
)

func TestEncode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "full alphabet", in: "0123456789abcdef", want: "cbdefghijklnrtuv"},
		{name: "upper case hex", in: "0123456789ABCDEF", want: "cbdefghijklnrtuv"},
		{name: "empty", in: "", want: ""},
		{name: "public id", in: "ff001122", want: "vvccbbdd"},
		{name: "odd length", in: "abc", wantErr: modhex.ErrOddLength},
		{name: "non hex", in: "0g", wantErr: modhex.ErrInvalidCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := modhex.Encode(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "full alphabet", in: "cbdefghijklnrtuv", want: "0123456789abcdef"},
		{name: "upper case modhex", in: "VVCCBBDD", want: "ff001122"},
		{name: "empty", in: "", want: ""},
		{name: "hex digit is not modhex", in: "c0", wantErr: modhex.ErrInvalidCharacter},
		{name: "letter outside alphabet", in: "ca", wantErr: modhex.ErrInvalidCharacter},
		{name: "odd length", in: "cbd", wantErr: modhex.ErrInvalidCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := modhex.Decode(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		raw := make([]byte, r.IntN(32))
		for i := range raw {
			raw[i] = byte(r.UintN(256))
		}
		h := hex.EncodeToString(raw)

		m, err := modhex.Encode(h)
		require.NoError(t, err)
		assert.Len(t, m, len(h))

		back, err := modhex.Decode(m)
		require.NoError(t, err)
		assert.Equal(t, h, back)
	}
}

func TestBytes(t *testing.T) {
	t.Parallel()
	raw := []byte{0x00, 0xff, 0x10, 0xab}
	m := modhex.EncodeBytes(raw)
	assert.Equal(t, "ccvvbcln", m)

	back, err := modhex.DecodeBytes(m)
	require.NoError(t, err)
	assert.Equal(t, raw, back)

	_, err = modhex.DecodeBytes("zz")
	assert.ErrorIs(t, err, modhex.ErrInvalidCharacter)
}

func TestIsValid(t *testing.T) {
	t.Parallel()
	assert.True(t, modhex.IsValid("cbdefghijklnrtuv"))
	assert.True(t, modhex.IsValid("VVCC"))
	assert.False(t, modhex.IsValid(""))
	assert.False(t, modhex.IsValid("cbd"))
	assert.False(t, modhex.IsValid("cbda"))
}
