package cryptox

import (
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fittrack/internal/common"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCipher(t *testing.T) *FieldCipher {
	t.Helper()
	c, err := NewFieldCipher(testSecret, 16)
	require.NoError(t, err)
	return c
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		min     int
		want    []byte
		wantErr bool
	}{
		{
			name:   "short secret is zero padded",
			secret: "sixteen-byte-key",
			min:    16,
			want:   append([]byte("sixteen-byte-key"), make([]byte, 16)...),
		},
		{
			name:   "exact length",
			secret: testSecret,
			min:    16,
			want:   []byte(testSecret),
		},
		{
			name:   "long secret is truncated",
			secret: testSecret + "tail",
			min:    16,
			want:   []byte(testSecret),
		},
		{
			name:    "below minimum",
			secret:  "short",
			min:     16,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveKey(tt.secret, tt.min)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, KeySize)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFieldCipher_RejectsShortKey(t *testing.T) {
	_, err := NewFieldCipher("too-short", 16)
	require.Error(t, err)
}

func TestEncryptField_BundleShape(t *testing.T) {
	c := newTestCipher(t)

	bundle, err := c.EncryptField("555-1234")
	require.NoError(t, err)

	parts := strings.Split(bundle, ":")
	require.Len(t, parts, 3)
	assert.Len(t, parts[0], IVSize*2)
	assert.Len(t, parts[1], TagSize*2)
	assert.Len(t, parts[2], len("555-1234")*2)
	for _, p := range parts {
		_, err := hex.DecodeString(p)
		assert.NoError(t, err)
		assert.Equal(t, strings.ToLower(p), p)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plaintext := range []string{"", "John", "555-1234", "1990-02-28", "Zoë ✓ 名前", strings.Repeat("x", 4096)} {
		bundle, err := c.EncryptField(plaintext)
		require.NoError(t, err)

		got, err := c.DecryptField(bundle)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptField_FreshIVEachCall(t *testing.T) {
	c := newTestCipher(t)

	b1, err := c.EncryptField("John")
	require.NoError(t, err)
	b2, err := c.EncryptField("John")
	require.NoError(t, err)

	assert.NotEqual(t, b1, b2)
	assert.NotEqual(t, strings.Split(b1, ":")[0], strings.Split(b2, ":")[0])
}

func TestDecryptField_WrongKey(t *testing.T) {
	c1 := newTestCipher(t)
	c2, err := NewFieldCipher("another-secret-of-enough-length!", 16)
	require.NoError(t, err)

	bundle, err := c1.EncryptField("John")
	require.NoError(t, err)

	got, err := c2.DecryptField(bundle)
	require.Error(t, err)
	assert.Empty(t, got)
	assert.ErrorIs(t, err, common.ErrDecryptionFailure)
}

// flipBit flips the lowest bit of the first byte of the given bundle part.
func flipBit(t *testing.T, bundle string, part int) string {
	t.Helper()
	parts := strings.Split(bundle, ":")
	raw, err := hex.DecodeString(parts[part])
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	raw[0] ^= 0x01
	parts[part] = hex.EncodeToString(raw)
	return strings.Join(parts, ":")
}

func TestDecryptField_Tampering(t *testing.T) {
	c := newTestCipher(t)
	bundle, err := c.EncryptField("555-1234")
	require.NoError(t, err)

	for name, part := range map[string]int{"iv": 0, "tag": 1, "ciphertext": 2} {
		t.Run(name, func(t *testing.T) {
			got, err := c.DecryptField(flipBit(t, bundle, part))
			require.Error(t, err)
			assert.Empty(t, got)
			assert.Equal(t, common.KindDecryptionFailure, common.KindOf(err))
		})
	}
}

func TestDecryptField_Malformed(t *testing.T) {
	c := newTestCipher(t)
	good, err := c.EncryptField("John")
	require.NoError(t, err)
	parts := strings.Split(good, ":")

	tests := map[string]string{
		"plaintext":       "John",
		"empty":           "",
		"one separator":   parts[0] + ":" + parts[1],
		"three separator": good + ":00",
		"non-hex iv":      "zz" + parts[0][2:] + ":" + parts[1] + ":" + parts[2],
		"short iv":        parts[0][:24] + ":" + parts[1] + ":" + parts[2],
		"short tag":       parts[0] + ":" + parts[1][:16] + ":" + parts[2],
		"odd ciphertext":  parts[0] + ":" + parts[1] + ":" + parts[2] + "a",
	}

	for name, bundle := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := c.DecryptField(bundle)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, common.ErrDecryptionFailure))
		})
	}
}

func TestFieldCipher_Concurrent(t *testing.T) {
	c := newTestCipher(t)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bundle, err := c.EncryptField("concurrent")
			if err != nil {
				errs <- err
				return
			}
			got, err := c.DecryptField(bundle)
			if err != nil {
				errs <- err
				return
			}
			if got != "concurrent" {
				errs <- errors.New("unexpected plaintext " + got)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
