// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bitstr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_masksTrailingBits(t *testing.T) {
	b := New(10, []byte{0xAA, 0xFF})
	assert.Equal(t, 10, b.Size())
	// 0xAA = 10101010, first 10 bits of 10101010_11111111 are
	// 1010101011, tail masked to zero within the second byte.
	assert.Equal(t, []byte{0xAA, 0xC0}, b.Bytes())
}

func TestIndex(t *testing.T) {
	b := New(8, []byte{0b10110010})
	want := []bool{true, false, true, true, false, false, true, false}
	for i, w := range want {
		assert.Equal(t, w, b.Index(i), "bit %d", i)
	}
}

func TestSubstring(t *testing.T) {
	b := New(16, []byte{0xAA, 0xBB})
	sub := b.Substring(8)
	assert.Equal(t, 8, sub.Size())
	assert.Equal(t, []byte{0xBB}, sub.Bytes())

	subN := b.SubstringN(4, 8)
	assert.Equal(t, 8, subN.Size())
	assert.Equal(t, "1010" /* tail of first byte */, b.String()[4:8])
	assert.Equal(t, b.String()[4:12], subN.String())
}

func TestPrepend(t *testing.T) {
	head := New(4, []byte{0xA0})  // 1010
	tail := New(4, []byte{0xB0})  // 1011 -> high nibble 1011? 0xB0=10110000 first4=1011
	got := tail.Prepend(head)
	assert.Equal(t, 8, got.Size())
	assert.Equal(t, head.String()+tail.String(), got.String())
}

func TestEqual(t *testing.T) {
	a := New(12, []byte{0x12, 0x30})
	b := New(12, []byte{0x12, 0x3F}) // tail bits beyond 12 differ, should still be equal
	assert.True(t, a.Equal(b))

	c := New(11, []byte{0x12, 0x30})
	assert.False(t, a.Equal(c))
}

func TestCommonPrefixLen(t *testing.T) {
	a := New(16, []byte{0xAA, 0xBB})
	b := New(10, []byte{0xAA, 0x80})
	assert.Equal(t, 10, a.CommonPrefixLen(b))

	c := New(16, []byte{0x00, 0x00})
	assert.Equal(t, 0, a.CommonPrefixLen(c))
}

func TestFromBytes(t *testing.T) {
	b := FromBytes([]byte{0x01, 0x02})
	assert.Equal(t, 16, b.Size())
	assert.Equal(t, []byte{0x01, 0x02}, b.Bytes())
}

func TestEmpty(t *testing.T) {
	var b Bits
	assert.True(t, b.Empty())
	assert.Equal(t, 0, b.Size())
}
